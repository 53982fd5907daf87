package tgtg

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNoCredentials is returned when a client was constructed with neither
// an email nor a complete credential tuple, no request is attempted.
var ErrNoCredentials = errors.New("you must provide at least email or access_token, refresh_token, user_id and cookie")

// ErrNotRegistered is returned when the login endpoint answers with the
// TERMS state, meaning the email is not linked to an account. User action
// is required, retrying won't help.
var ErrNotRegistered = errors.New("this email is not linked to an account, sign up with it first")

// ErrPollingExhausted is returned when the confirmation mail was not
// clicked within the polling window. The login flow has to be restarted.
var ErrPollingExhausted = errors.New("max polling retries reached")

// StatusError is returned when an endpoint answers with an unexpected
// HTTP status.
type StatusError struct {
	Op         string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s failed with status code %d", e.Op, e.StatusCode)
}

func (e *StatusError) RateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}
