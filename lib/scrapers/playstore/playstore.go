// Package playstore pulls the currently published version of the TGTG
// Android app off its Play Store listing. The store page inlines its data
// as AF_initDataCallback script blobs, the app version lives at a fixed
// index inside the ds:5 blob.
package playstore

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"
	"tgtgwatch/lib/telemetry"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/titanous/json5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("scrapers/playstore")

const listingUrl = "https://play.google.com/store/apps/details?id=com.app.tgtg&hl=en&gl=US"

var initDataRegex = regexp.MustCompile(`(?s)AF_initDataCallback\(\{key:\s*'ds:5'.*?data:(.*?), sideChannel:\s*\{`)

type Client struct {
	http *resty.Client
}

func NewClient() *Client {
	client := resty.New()
	client.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	client.SetTimeout(time.Second * 30)

	telemetry.InstrumentResty(client, "scrapers/playstore/http")

	return &Client{http: client}
}

// FetchAppVersion scrapes the live APK version off the Play Store listing.
func (c *Client) FetchAppVersion(ctx context.Context) (string, error) {
	ctx, span := tracer.Start(ctx, "FetchAppVersion")
	defer span.End()

	res, err := c.http.R().
		SetContext(ctx).
		Get(listingUrl)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch store listing")
		return "", err
	}
	if res.StatusCode() != 200 {
		err := fmt.Errorf("store listing returned status %d", res.StatusCode())
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	version, err := versionFromListing(strings.NewReader(res.String()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to extract version from listing")
		return "", err
	}
	return version, nil
}

func versionFromListing(page io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(page)
	if err != nil {
		return "", err
	}

	for _, script := range doc.Find("script").Nodes {
		if script.FirstChild == nil {
			continue
		}
		groups := initDataRegex.FindStringSubmatch(script.FirstChild.Data)
		if len(groups) < 2 {
			continue
		}
		return versionFromInitData(groups[1])
	}

	return "", fmt.Errorf("could not find app data in store listing")
}

// the version string sits at data[1][2][140][0][0][0]
var versionPath = []int{1, 2, 140, 0, 0, 0}

func versionFromInitData(data string) (string, error) {
	var blob any
	// the blob is javascript rather than strict json, json5 swallows the
	// difference
	err := json5.Unmarshal([]byte(data), &blob)
	if err != nil {
		return "", err
	}

	node := blob
	for depth, i := range versionPath {
		arr, ok := node.([]any)
		if !ok || i >= len(arr) {
			return "", fmt.Errorf("unexpected app data shape at depth %d", depth)
		}
		node = arr[i]
	}

	version, ok := node.(string)
	if !ok || version == "" {
		return "", fmt.Errorf("app version is not a string")
	}
	return version, nil
}
