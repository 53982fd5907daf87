package commands

import (
	"database/sql"
	"time"
	"tgtgwatch/lib/telemetry"
	"tgtgwatch/lib/tgtg"
	"tgtgwatch/services/watcher"

	"github.com/spf13/cobra"

	_ "modernc.org/sqlite"
)

func init() {
	rootCmd.AddCommand(watchCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll for deals and send a mail when watched stores restock.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := ensureConfig()
		client := newClient(cfg)
		telemetry.InstrumentPerfStats(cmd.Context())

		interval := time.Duration(cfg.Watch.IntervalMinutes) * time.Minute
		dbPath := cfg.Watch.Database
		if dbPath == "" {
			dbPath = "watch.db"
		}

		database, err := sql.Open("sqlite", dbPath)
		if err != nil {
			fatal("failed to open watch database", err)
		}
		defer database.Close()

		w, err := watcher.New(client, database, watcher.Options{
			Search: tgtg.SearchOptions{
				Latitude:  *cfg.Location.Lat,
				Longitude: *cfg.Location.Lon,
				RadiusKm:  cfg.Location.Range,
				PageSize:  50,
				Page:      1,
			},
			Interval: interval,
			Stores:   cfg.Watch.Stores,
			Smtp:     cfg.Watch.Smtp,
			NotifyTo: cfg.Watch.NotifyTo,
		})
		if err != nil {
			fatal("failed to start watcher", err)
		}

		// credentials rotate on the first search of the run, persist them
		// once instead of racing the loop
		err = client.EnsureLogin(cmd.Context())
		if err != nil {
			fatal("login failed", err)
		}
		persistCredentials(cfg, client)

		err = w.Run(cmd.Context())
		if err != nil && cmd.Context().Err() == nil {
			fatal("watcher stopped", err)
		}
	},
}
