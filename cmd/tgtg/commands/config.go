package commands

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"tgtgwatch/lib/configutil"
	"tgtgwatch/lib/scrapers/playstore"
	"tgtgwatch/lib/tgtg"
	"tgtgwatch/lib/useragent"
	"tgtgwatch/services/watcher"
)

type tgtgConfig struct {
	Email       string            `json:"email"`
	Credentials *tgtg.Credentials `json:"credentials,omitempty"`
}

// Lat and Lon are pointers so that 0 (a valid coordinate) is
// distinguishable from "never configured".
type locationConfig struct {
	Lat   *float64 `json:"lat"`
	Lon   *float64 `json:"lon"`
	Range int      `json:"range"`
}

type watchConfig struct {
	IntervalMinutes int                `json:"interval_minutes"`
	Stores          []string           `json:"stores"`
	NotifyTo        []string           `json:"notify_to"`
	Smtp            watcher.SmtpConfig `json:"smtp"`
	Database        string             `json:"database"`
}

type config struct {
	Tgtg     tgtgConfig     `json:"tgtg"`
	Location locationConfig `json:"location"`
	Watch    watchConfig    `json:"watch"`
}

func (c locationConfig) complete() bool {
	return c.Lat != nil && c.Lon != nil && c.Range != 0
}

func loadConfig() (config, error) {
	cfg, err := configutil.ReadConfig[config](configPath)
	if os.IsNotExist(err) {
		return config{}, nil
	}
	return cfg, err
}

func saveConfig(cfg config) error {
	return configutil.WriteConfig(configPath, cfg)
}

func prompt(label string) string {
	fmt.Printf("%s: ", label)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		fatal("failed to read input", err)
	}
	return strings.TrimSpace(line)
}

func promptFloat(label string) float64 {
	value, err := strconv.ParseFloat(prompt(label), 64)
	if err != nil {
		fatal("not a number", err)
	}
	return value
}

// ensureConfig fills in missing email and location interactively and
// persists the answers, the way first-run setup is expected to work.
func ensureConfig() config {
	cfg, err := loadConfig()
	if err != nil {
		fatal("failed to load config", err)
	}

	dirty := false
	if cfg.Tgtg.Email == "" && (cfg.Tgtg.Credentials == nil || !cfg.Tgtg.Credentials.Complete()) {
		cfg.Tgtg.Email = prompt("Enter email")
		dirty = true
	}
	if !cfg.Location.complete() {
		lat := promptFloat("Enter latitude")
		lon := promptFloat("Enter longitude")
		cfg.Location.Lat = &lat
		cfg.Location.Lon = &lon
		cfg.Location.Range = int(promptFloat("Enter range (in km)"))
		dirty = true
	}

	if dirty {
		err = saveConfig(cfg)
		if err != nil {
			fatal("failed to save config", err)
		}
	}
	return cfg
}

func newClient(cfg config) *tgtg.Client {
	opts := tgtg.ClientOptions{
		Email:     cfg.Tgtg.Email,
		UserAgent: useragent.FromStore(playstore.NewClient()),
	}
	if cfg.Tgtg.Credentials != nil {
		opts.Credentials = *cfg.Tgtg.Credentials
	}
	return tgtg.NewClient(opts)
}

// persistCredentials writes the session tuple back after a successful
// login or refresh so the next run skips the email flow.
func persistCredentials(cfg config, client *tgtg.Client) {
	creds := client.Credentials()
	if !creds.Complete() {
		return
	}
	cfg.Tgtg.Credentials = &creds
	err := saveConfig(cfg)
	if err != nil {
		fatal("failed to persist credentials", err)
	}
}
