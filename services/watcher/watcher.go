// Package watcher polls the item search on an interval and emails when a
// watched store goes from sold out back to available. Availability per
// listing is tracked in a local sqlite database so restarts don't
// re-announce everything.
package watcher

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"
	"tgtgwatch/lib/tgtg"
	"tgtgwatch/services/watcher/db"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	_ "modernc.org/sqlite"
)

var tracer = otel.Tracer("services/watcher")

// snapshots older than this are pruned every cycle
const snapshotRetention = 14 * 24 * time.Hour

type Options struct {
	Search   tgtg.SearchOptions
	Interval time.Duration
	// fuzzy-matched against listing store names, empty watches everything
	Stores   []string
	Smtp     SmtpConfig
	NotifyTo []string
}

type Watcher struct {
	client *tgtg.Client
	db     *sql.DB
	qry    *db.Queries
	opts   Options
}

func New(client *tgtg.Client, database *sql.DB, opts Options) (*Watcher, error) {
	_, err := database.Exec(db.Schema)
	if err != nil {
		return nil, err
	}
	if opts.Interval == 0 {
		opts.Interval = 5 * time.Minute
	}

	return &Watcher{
		client: client,
		db:     database,
		qry:    db.New(database),
		opts:   opts,
	}, nil
}

// Run blocks until ctx is cancelled. A failed cycle is logged and the
// next tick tries again, only cancellation stops the loop.
func (w *Watcher) Run(ctx context.Context) error {
	slog.InfoContext(ctx, "watcher started",
		"interval", w.opts.Interval,
		"stores", w.opts.Stores,
	)

	ticker := time.NewTicker(w.opts.Interval)
	defer ticker.Stop()

	for {
		err := w.check(ctx)
		if err != nil {
			slog.ErrorContext(ctx, "watch cycle failed", "err", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *Watcher) check(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "check")
	defer span.End()

	items, err := w.client.Search(ctx, w.opts.Search)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "search failed")
		return err
	}
	span.SetAttributes(attribute.Int("listings", len(items)))

	newlyAvailable, err := w.recordAvailability(ctx, items)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to record availability")
		return err
	}

	err = w.qry.DeleteSnapshotsBefore(ctx, time.Now().Add(-snapshotRetention).Unix())
	if err != nil {
		slog.WarnContext(ctx, "failed to prune old snapshots", "err", err)
	}

	if len(newlyAvailable) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "stores came back in stock", "count", len(newlyAvailable))
	if len(w.opts.NotifyTo) == 0 {
		for _, item := range newlyAvailable {
			slog.InfoContext(ctx, "available",
				"store", item.StoreName,
				"bags", item.ItemsAvailable,
				"price", item.PriceAfter,
			)
		}
		return nil
	}
	return w.notify(ctx, newlyAvailable)
}

// recordAvailability stores one snapshot per listing and returns the
// listings that flipped from sold out (or unseen) to available.
func (w *Watcher) recordAvailability(ctx context.Context, items []tgtg.Item) ([]tgtg.Item, error) {
	ctx, span := tracer.Start(ctx, "recordAvailability")
	defer span.End()

	now := time.Now().Unix()

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()
	txqry := w.qry.WithTx(tx)

	var newlyAvailable []tgtg.Item
	for _, item := range items {
		if len(w.opts.Stores) > 0 && !matchesAny(w.opts.Stores, item.StoreName) {
			continue
		}

		previous, err := txqry.GetLatestAvailability(ctx, item.ItemID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		seenBefore := err == nil

		err = txqry.CreateSnapshot(ctx, db.CreateSnapshotParams{
			ItemID:         item.ItemID,
			StoreName:      item.StoreName,
			Time:           now,
			ItemsAvailable: int64(item.ItemsAvailable),
		})
		if err != nil {
			return nil, err
		}

		if item.ItemsAvailable > 0 && (!seenBefore || previous == 0) {
			newlyAvailable = append(newlyAvailable, item)
		}
	}

	err = tx.Commit()
	if err != nil {
		return nil, err
	}
	return newlyAvailable, nil
}
