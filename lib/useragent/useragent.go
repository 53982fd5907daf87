// Package useragent builds the client identity string sent with every
// request to the mobile API, so traffic blends in with the genuine
// Android app.
package useragent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mazen160/go-random"
)

// version the identity string falls back to when the store listing
// cannot be scraped
const FallbackVersion = "22.5.5"

var templates = []string{
	"TGTG/%s Dalvik/2.1.0 (Linux; U; Android 9; Nexus 5 Build/M4B30Z)",
	"TGTG/%s Dalvik/2.1.0 (Linux; U; Android 10; SM-G935F Build/NRD90M)",
	"TGTG/%s Dalvik/2.1.0 (Linux; Android 12; SM-G920V Build/MMB29K)",
}

// Provider returns the identity string for a session. Injected into the
// tgtg client at construction instead of living in a process-wide global.
type Provider func(ctx context.Context) string

// Random renders a randomly chosen device template with the given app
// version.
func Random(version string) (string, error) {
	i, err := random.IntRange(0, len(templates))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(templates[i], version), nil
}

// VersionFetcher is satisfied by the playstore scraper client.
type VersionFetcher interface {
	FetchAppVersion(ctx context.Context) (string, error)
}

// FromStore returns a Provider that scrapes the live app version once
// per session, falling back to a known-good version on failure.
func FromStore(fetcher VersionFetcher) Provider {
	return func(ctx context.Context) string {
		version, err := fetcher.FetchAppVersion(ctx)
		if err != nil {
			slog.WarnContext(ctx, "failed to fetch live app version", "err", err, "fallback", FallbackVersion)
			version = FallbackVersion
		}
		slog.InfoContext(ctx, "using app version", "version", version)

		agent, err := Random(version)
		if err != nil {
			// only reachable if the template list were empty
			return fmt.Sprintf(templates[0], version)
		}
		return agent
	}
}
