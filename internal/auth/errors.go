package auth

import (
	"errors"
	"fmt"
)

// ErrCodeRefreshFailed marks a failed token exchange.
const ErrCodeRefreshFailed = "CREDENTIAL_REFRESH_FAILED"

var errInvalidToken = errors.New("token has no access token or instance url")

// RefreshError reports that acquiring a bearer token failed.
// It is fatal to the connection and never retried automatically.
type RefreshError struct {
	// Code is always ErrCodeRefreshFailed.
	Code string

	// LoginURL is the token endpoint that was called.
	LoginURL string

	// Err is the underlying failure.
	Err error
}

// Error implements the error interface.
func (e *RefreshError) Error() string {
	if e.LoginURL != "" {
		return fmt.Sprintf("%s: token refresh failed (login=%s): %v", e.Code, e.LoginURL, e.Err)
	}
	return fmt.Sprintf("%s: token refresh failed: %v", e.Code, e.Err)
}

// Unwrap returns the underlying failure.
func (e *RefreshError) Unwrap() error {
	return e.Err
}

// NewRefreshError wraps err as a RefreshError.
func NewRefreshError(loginURL string, err error) *RefreshError {
	return &RefreshError{Code: ErrCodeRefreshFailed, LoginURL: loginURL, Err: err}
}

// IsRefreshFailed returns true if err is or wraps a RefreshError.
func IsRefreshFailed(err error) bool {
	var re *RefreshError
	return errors.As(err, &re)
}
