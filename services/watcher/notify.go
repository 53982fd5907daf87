package watcher

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"tgtgwatch/lib/tgtg"

	"github.com/jordan-wright/email"
	"go.opentelemetry.io/otel/codes"
)

type SmtpConfig struct {
	Server       string `json:"server"`
	Port         int    `json:"port"`
	EmailAddress string `json:"email_address"`
	Password     string `json:"password"`
}

func notificationBody(items []tgtg.Item) string {
	var body strings.Builder
	for _, item := range items {
		fmt.Fprintf(&body, "%s: %d bag(s) for %s (was %s)\n",
			item.StoreName, item.ItemsAvailable, item.PriceAfter, item.PriceBefore)
		if item.PickupStart != "" {
			fmt.Fprintf(&body, "pickup %s to %s\n", item.PickupStart, item.PickupEnd)
		}
		fmt.Fprintf(&body, "%s\n\n", item.Address)
	}
	return body.String()
}

func (w *Watcher) notify(ctx context.Context, items []tgtg.Item) error {
	ctx, span := tracer.Start(ctx, "notify")
	defer span.End()

	mail := email.NewEmail()
	mail.From = fmt.Sprintf("tgtgwatch <%s>", w.opts.Smtp.EmailAddress)
	mail.To = w.opts.NotifyTo
	if len(items) == 1 {
		mail.Subject = fmt.Sprintf("%s has bags again", items[0].StoreName)
	} else {
		mail.Subject = fmt.Sprintf("%d stores have bags again", len(items))
	}

	mail.Text = []byte(notificationBody(items))

	addr := fmt.Sprintf("%s:%d", w.opts.Smtp.Server, w.opts.Smtp.Port)
	err := mail.Send(
		addr,
		smtp.PlainAuth("", w.opts.Smtp.EmailAddress, w.opts.Smtp.Password, w.opts.Smtp.Server),
	)
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = mail.Send(addr, nil)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send notification email")
		return err
	}
	return nil
}
