package apiclient

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnreachable marks failures where the request never got a response
	ErrUnreachable = errors.New("backend unreachable")

	// ErrSessionExpired is returned when a 401 could not be recovered by a refresh.
	// The session has been torn down and the caller should send the user to login.
	ErrSessionExpired = errors.New("session expired")

	// ErrResponseTooLarge is returned instead of a truncated response body
	ErrResponseTooLarge = errors.New("backend response too large")
)

// NetworkError reports a request that produced no HTTP response
type NetworkError struct {
	Method string
	Path   string
	Err    error
}

// Error implements the error interface
func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: backend unreachable: %v", e.Method, e.Path, e.Err)
}

// Unwrap exposes both ErrUnreachable and the underlying cause
func (e *NetworkError) Unwrap() []error {
	return []error{ErrUnreachable, e.Err}
}

// StatusError reports a response with a 4xx or 5xx status
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Error implements the error interface
func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: backend responded %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
}

// IsUnauthorized reports whether err is a 401 response
func IsUnauthorized(err error) bool {
	return StatusCode(err) == http.StatusUnauthorized
}

// StatusCode returns the HTTP status carried by err, or 0 when err is not a StatusError
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}
