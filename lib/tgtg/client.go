// Package tgtg is a client for the unofficial Too Good To Go mobile API.
// It owns the email login flow (including the mail-confirmation polling
// dance), token refresh, and the search endpoints, and flattens the API's
// deeply nested listing payloads into stable records.
package tgtg

import (
	"context"
	"sync"
	"time"
	"tgtgwatch/lib/telemetry"
	"tgtgwatch/lib/useragent"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("tgtg")

const (
	defaultBaseUrl      = "https://apptoogoodtogo.com/api/"
	authByEmailEndpoint = "auth/v3/authByEmail"
	authPollingEndpoint = "auth/v3/authByRequestPollingId"
	refreshEndpoint     = "auth/v3/token/refresh"
	itemEndpoint        = "item/v8/"

	deviceType = "ANDROID"
)

const (
	// how long an access token is assumed valid without asking the server
	accessTokenLifetime = 4 * time.Hour
	defaultMaxPolls     = 30
	defaultPollInterval = 10 * time.Second
)

// Credentials is the persistent part of a session. The CLI stores it
// under tgtg.credentials in config.json5.
type Credentials struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	UserID       string `json:"user_id"`
	Cookie       string `json:"cookie"`
}

// Complete reports whether the tuple can stand in for an email login.
func (c Credentials) Complete() bool {
	return c.AccessToken != "" && c.RefreshToken != "" && c.UserID != "" && c.Cookie != ""
}

type ClientOptions struct {
	// defaults to the production API host
	BaseUrl     string
	Email       string
	Credentials Credentials
	// identity string provider, defaults to a fixed-version random
	// device template
	UserAgent useragent.Provider
	// uniform timeout applied to every request, defaults to 30s
	Timeout time.Duration

	// polling knobs, only tests should need to touch these
	MaxPolls     int
	PollInterval time.Duration
}

type Client struct {
	http      *resty.Client
	userAgent useragent.Provider

	maxPolls     int
	pollInterval time.Duration

	// guards the session fields below. login, polling and refresh all
	// mutate them, concurrent callers must not discover staleness twice.
	mu          sync.Mutex
	email       string
	creds       Credentials
	lastRefresh time.Time
	agent       string
}

func NewClient(opts ClientOptions) *Client {
	baseUrl := opts.BaseUrl
	if baseUrl == "" {
		baseUrl = defaultBaseUrl
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = time.Second * 30
	}
	maxPolls := opts.MaxPolls
	if maxPolls == 0 {
		maxPolls = defaultMaxPolls
	}
	pollInterval := opts.PollInterval
	if pollInterval == 0 {
		pollInterval = defaultPollInterval
	}
	agentProvider := opts.UserAgent
	if agentProvider == nil {
		agentProvider = func(ctx context.Context) string {
			agent, err := useragent.Random(useragent.FallbackVersion)
			if err != nil {
				return ""
			}
			return agent
		}
	}

	client := resty.New()
	client.SetBaseURL(baseUrl)
	client.SetTimeout(timeout)
	client.SetHeader("accept", "application/json")
	client.SetHeader("accept-language", "en-GB")
	client.SetHeader("accept-encoding", "gzip")
	client.SetHeader("content-type", "application/json; charset=utf-8")
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	telemetry.InstrumentResty(client, "tgtg/http")

	return &Client{
		http:         client,
		userAgent:    agentProvider,
		maxPolls:     maxPolls,
		pollInterval: pollInterval,
		email:        opts.Email,
		creds:        opts.Credentials,
	}
}

// Credentials returns a snapshot of the current credential tuple, callers
// persist it after a successful EnsureLogin.
func (c *Client) Credentials() Credentials {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.creds
}

// request builds a request carrying the session identity. The caller
// must hold c.mu.
func (c *Client) request(ctx context.Context) *resty.Request {
	if c.agent == "" {
		c.agent = c.userAgent(ctx)
	}

	req := c.http.R().SetContext(ctx)
	req.SetHeader("user-agent", c.agent)
	if c.creds.Cookie != "" {
		req.SetHeader("Cookie", c.creds.Cookie)
	}
	if c.creds.AccessToken != "" {
		req.SetAuthToken(c.creds.AccessToken)
	}
	return req
}
