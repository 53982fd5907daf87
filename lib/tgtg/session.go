package tgtg

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/codes"
)

type authByEmailResponse struct {
	State     string `json:"state"`
	PollingID string `json:"polling_id"`
}

type loginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	StartupData  struct {
		User struct {
			UserID string `json:"user_id"`
		} `json:"user"`
	} `json:"startup_data"`
}

type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// authenticated reports whether the session holds a usable token set.
// The caller must hold c.mu.
func (c *Client) authenticated() bool {
	return c.creds.AccessToken != "" && c.creds.RefreshToken != "" && c.creds.UserID != ""
}

// EnsureLogin guarantees a valid session, refreshing or running the full
// email login flow as needed. It is idempotent and safe to call before
// every request. The email flow blocks until the confirmation mail is
// clicked (or ctx is cancelled), which can take minutes.
func (c *Client) EnsureLogin(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "EnsureLogin")
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	var err error
	if c.authenticated() {
		err = c.refreshLocked(ctx)
	} else if c.email == "" {
		slog.ErrorContext(ctx, "login error", "err", ErrNoCredentials)
		err = ErrNoCredentials
	} else {
		err = c.loginByEmailLocked(ctx)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "login failed")
	}
	return err
}

func (c *Client) loginByEmailLocked(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "loginByEmail")
	defer span.End()

	res, err := c.request(ctx).
		SetBody(map[string]string{
			"device_type": deviceType,
			"email":       c.email,
		}).
		Post(authByEmailEndpoint)
	if err != nil {
		slog.ErrorContext(ctx, "error during login", "err", err)
		return err
	}
	if res.StatusCode() != http.StatusOK && res.StatusCode() != http.StatusCreated {
		return statusError(ctx, "login", res.StatusCode())
	}

	var body authByEmailResponse
	err = json.Unmarshal(res.Body(), &body)
	if err != nil {
		return err
	}

	switch body.State {
	case "TERMS":
		slog.ErrorContext(ctx, "email is not linked to an account", "email", c.email)
		return ErrNotRegistered
	case "WAIT":
		return c.pollLocked(ctx, body.PollingID)
	default:
		slog.ErrorContext(ctx, "login failed", "state", body.State)
		return statusError(ctx, "login", res.StatusCode())
	}
}

func (c *Client) pollLocked(ctx context.Context, pollingID string) error {
	ctx, span := tracer.Start(ctx, "poll")
	defer span.End()

	for attempt := 0; attempt < c.maxPolls; attempt++ {
		res, err := c.request(ctx).
			SetBody(map[string]string{
				"device_type":        deviceType,
				"email":              c.email,
				"request_polling_id": pollingID,
			}).
			Post(authPollingEndpoint)
		if err != nil {
			slog.ErrorContext(ctx, "error during polling", "err", err)
			return err
		}

		switch res.StatusCode() {
		case http.StatusAccepted:
			slog.InfoContext(ctx, "check your mailbox on PC to continue "+
				"(opening the mail on mobile won't work if the app is installed)")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.pollInterval):
			}

		case http.StatusOK:
			var body loginResponse
			err = json.Unmarshal(res.Body(), &body)
			if err != nil {
				return err
			}
			c.creds.AccessToken = body.AccessToken
			c.creds.RefreshToken = body.RefreshToken
			c.creds.UserID = body.StartupData.User.UserID
			c.creds.Cookie = res.Header().Get("Set-Cookie")
			c.lastRefresh = time.Now()
			slog.InfoContext(ctx, "logged in", "user_id", c.creds.UserID)
			return nil

		default:
			return statusError(ctx, "polling", res.StatusCode())
		}
	}

	slog.ErrorContext(ctx, "max polling retries reached", "attempts", c.maxPolls)
	return ErrPollingExhausted
}

// refreshLocked swaps the token set for a fresh one once the lifetime
// window has elapsed. On failure the stale tokens are left in place, the
// next authenticated request will fail on its own, no automatic re-login
// is attempted.
func (c *Client) refreshLocked(ctx context.Context) error {
	if !c.lastRefresh.IsZero() && time.Since(c.lastRefresh) <= accessTokenLifetime {
		return nil
	}

	ctx, span := tracer.Start(ctx, "refreshToken")
	defer span.End()

	res, err := c.request(ctx).
		SetBody(map[string]string{
			"refresh_token": c.creds.RefreshToken,
		}).
		Post(refreshEndpoint)
	if err != nil {
		slog.ErrorContext(ctx, "error during refreshing token", "err", err)
		return err
	}
	if res.StatusCode() != http.StatusOK {
		return statusError(ctx, "refresh", res.StatusCode())
	}

	var body refreshResponse
	err = json.Unmarshal(res.Body(), &body)
	if err != nil {
		return err
	}
	c.creds.AccessToken = body.AccessToken
	c.creds.RefreshToken = body.RefreshToken
	if cookie := res.Header().Get("Set-Cookie"); cookie != "" {
		c.creds.Cookie = cookie
	}
	c.lastRefresh = time.Now()
	slog.DebugContext(ctx, "token refreshed")
	return nil
}

func statusError(ctx context.Context, op string, status int) *StatusError {
	err := &StatusError{Op: op, StatusCode: status}
	if err.RateLimited() {
		slog.ErrorContext(ctx, "too many requests", "op", op, "status", status)
	} else {
		slog.ErrorContext(ctx, op+" failed", "status", status)
	}
	return err
}
