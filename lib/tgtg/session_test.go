package tgtg

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
	"tgtgwatch/lib/telemetry"

	"github.com/stretchr/testify/require"
)

// fakeAPI stands in for the auth endpoints. pollUntilOK controls how
// many 202 responses the polling endpoint hands out before confirming.
type fakeAPI struct {
	mu           sync.Mutex
	pollUntilOK  int
	loginState   string
	refreshCalls int
	loginCalls   int
	pollCalls    int
}

func (f *fakeAPI) server(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/auth/v3/authByEmail", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.loginCalls++
		state := f.loginState
		f.mu.Unlock()

		w.Header().Set("content-type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"state":      state,
			"polling_id": "polling-id-1",
		})
	})

	mux.HandleFunc("/auth/v3/authByRequestPollingId", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		require.Equal(t, "ANDROID", body["device_type"])
		require.Equal(t, "polling-id-1", body["request_polling_id"])

		f.mu.Lock()
		f.pollCalls++
		done := f.pollCalls > f.pollUntilOK
		f.mu.Unlock()

		if !done {
			w.WriteHeader(http.StatusAccepted)
			return
		}

		w.Header().Set("Set-Cookie", "datadome=session-cookie")
		w.Header().Set("content-type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "access-1",
			"refresh_token": "refresh-1",
			"startup_data": map[string]any{
				"user": map[string]any{"user_id": "user-1"},
			},
		})
	})

	mux.HandleFunc("/auth/v3/token/refresh", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.refreshCalls++
		f.mu.Unlock()

		w.Header().Set("Set-Cookie", "datadome=rotated-cookie")
		w.Header().Set("content-type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"access_token":  "access-2",
			"refresh_token": "refresh-2",
		})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func testClient(t *testing.T, server *httptest.Server, opts ClientOptions) *Client {
	opts.BaseUrl = server.URL + "/"
	opts.PollInterval = time.Millisecond
	if opts.UserAgent == nil {
		opts.UserAgent = func(ctx context.Context) string {
			return "TGTG/22.5.5 Dalvik/2.1.0 (test)"
		}
	}
	return NewClient(opts)
}

func completeCredentials() Credentials {
	return Credentials{
		AccessToken:  "access-0",
		RefreshToken: "refresh-0",
		UserID:       "user-0",
		Cookie:       "datadome=cookie-0",
	}
}

func TestEnsureLoginWithoutCredentials(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:tgtg")
	defer cleanup()

	api := &fakeAPI{}
	client := testClient(t, api.server(t), ClientOptions{})

	err := client.EnsureLogin(context.Background())
	require.ErrorIs(t, err, ErrNoCredentials)

	api.mu.Lock()
	defer api.mu.Unlock()
	require.Zero(t, api.loginCalls, "no request may be made without credentials")
	require.Zero(t, api.refreshCalls)
}

func TestLoginTermsState(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:tgtg")
	defer cleanup()

	api := &fakeAPI{loginState: "TERMS"}
	client := testClient(t, api.server(t), ClientOptions{Email: "new@example.com"})

	err := client.EnsureLogin(context.Background())
	require.ErrorIs(t, err, ErrNotRegistered)

	require.Equal(t, Credentials{}, client.Credentials(), "TERMS must not mutate the session")
	api.mu.Lock()
	defer api.mu.Unlock()
	require.Zero(t, api.pollCalls, "TERMS must never reach the polling endpoint")
}

func TestLoginPollingConfirmation(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:tgtg")
	defer cleanup()

	api := &fakeAPI{loginState: "WAIT", pollUntilOK: 29}
	client := testClient(t, api.server(t), ClientOptions{Email: "user@example.com"})

	err := client.EnsureLogin(context.Background())
	require.NoError(t, err)

	creds := client.Credentials()
	require.Equal(t, "access-1", creds.AccessToken)
	require.Equal(t, "refresh-1", creds.RefreshToken)
	require.Equal(t, "user-1", creds.UserID)
	require.Equal(t, "datadome=session-cookie", creds.Cookie)

	api.mu.Lock()
	defer api.mu.Unlock()
	require.Equal(t, 30, api.pollCalls)
}

func TestLoginPollingExhausted(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:tgtg")
	defer cleanup()

	// never confirms
	api := &fakeAPI{loginState: "WAIT", pollUntilOK: 1 << 30}
	client := testClient(t, api.server(t), ClientOptions{Email: "user@example.com"})

	err := client.EnsureLogin(context.Background())
	require.ErrorIs(t, err, ErrPollingExhausted)

	require.Equal(t, Credentials{}, client.Credentials(), "exhaustion must not mutate the session")
	api.mu.Lock()
	defer api.mu.Unlock()
	require.Equal(t, 30, api.pollCalls)
}

func TestLoginPollingCancellable(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:tgtg")
	defer cleanup()

	api := &fakeAPI{loginState: "WAIT", pollUntilOK: 1 << 30}
	client := testClient(t, api.server(t), ClientOptions{Email: "user@example.com"})
	client.pollInterval = time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := client.EnsureLogin(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Less(t, time.Since(start), 10*time.Second, "cancellation must interrupt the polling wait")
}

func TestRefreshSkippedWithinLifetimeWindow(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:tgtg")
	defer cleanup()

	api := &fakeAPI{}
	client := testClient(t, api.server(t), ClientOptions{Credentials: completeCredentials()})

	require.NoError(t, client.EnsureLogin(context.Background()))
	require.NoError(t, client.EnsureLogin(context.Background()))

	api.mu.Lock()
	refreshCalls := api.refreshCalls
	api.mu.Unlock()
	require.Equal(t, 1, refreshCalls, "second call within the window must not refresh")

	creds := client.Credentials()
	require.Equal(t, "access-2", creds.AccessToken)
	require.Equal(t, "refresh-2", creds.RefreshToken)
	require.Equal(t, "datadome=rotated-cookie", creds.Cookie)
}

func TestRefreshAfterLifetimeElapsed(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:tgtg")
	defer cleanup()

	api := &fakeAPI{}
	client := testClient(t, api.server(t), ClientOptions{Credentials: completeCredentials()})

	require.NoError(t, client.EnsureLogin(context.Background()))

	client.mu.Lock()
	client.lastRefresh = time.Now().Add(-accessTokenLifetime - time.Minute)
	client.mu.Unlock()

	require.NoError(t, client.EnsureLogin(context.Background()))

	api.mu.Lock()
	defer api.mu.Unlock()
	require.Equal(t, 2, api.refreshCalls)
}

func TestRefreshFailureLeavesStaleSession(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:tgtg")
	defer cleanup()

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/v3/token/refresh", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := testClient(t, server, ClientOptions{Credentials: completeCredentials()})

	err := client.EnsureLogin(context.Background())

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusTooManyRequests, statusErr.StatusCode)
	require.True(t, statusErr.RateLimited())

	require.Equal(t, completeCredentials(), client.Credentials(), "failed refresh must leave the stale tuple in place")
}
