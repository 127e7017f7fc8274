package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Common error types for the voting client
var (
	// Authentication errors
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrTokenRefreshFailed    = errors.New("token refresh failed")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrSessionExpiredLocally = errors.New("session expired due to inactivity")
	ErrSessionRevoked        = errors.New("session rejected by server")
	ErrNoSession             = errors.New("no session")
	ErrMissingExpiry         = errors.New("token expiry unknown")
	ErrAuthInProgress        = errors.New("authentication already in progress")
	ErrAdminRequired         = errors.New("admin role required")
	ErrInvalidIdentityToken  = errors.New("invalid identity provider token")

	// Voting errors
	ErrVoteConflict       = errors.New("vote rejected")
	ErrSubmissionInFlight = errors.New("vote submission already in flight")

	// General errors
	ErrNetworkOrServer = errors.New("network or server error")
	ErrMalformed       = fmt.Errorf("malformed response: %w", ErrNetworkOrServer)
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrConflict        = errors.New("conflict")
	ErrInvalidRequest  = errors.New("invalid request")
)

// APIError is a non-2xx response from the backend.
type APIError struct {
	StatusCode int
	Message    string
	Path       string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: %d %s", e.Path, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("%s: %d %s", e.Path, e.StatusCode, e.Message)
}

// Is maps status codes onto the sentinel taxonomy so callers can use errors.Is.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrForbidden:
		return e.StatusCode == http.StatusForbidden
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrConflict:
		return e.StatusCode == http.StatusConflict
	case ErrNetworkOrServer:
		return e.StatusCode >= http.StatusInternalServerError
	}
	return false
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Join is errors.Join.
func Join(errs ...error) error {
	return errors.Join(errs...)
}

// StatusCode returns the HTTP status of an APIError in err's chain, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
