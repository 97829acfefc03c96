package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError represents an error answered to portal clients
type AppError struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Status   int    `json:"-"`
	Redirect string `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// WithRedirect returns a copy of e that tells the client where to go next
func (e *AppError) WithRedirect(path string) *AppError {
	cp := *e
	cp.Redirect = path
	return &cp
}

// Common error codes
const (
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeSessionExpired     = "SESSION_EXPIRED"
	ErrCodeBackendUnreachable = "BACKEND_UNREACHABLE"
	ErrCodeBackendError       = "BACKEND_ERROR"
	ErrCodeRateLimitExceeded  = "RATE_LIMIT_EXCEEDED"
	ErrCodeValidationFailed   = "VALIDATION_FAILED"
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodePayloadTooLarge    = "PAYLOAD_TOO_LARGE"
)

// NewAppError creates a new application error
func NewAppError(code, message string, status int) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Status:  status,
	}
}

// As extracts an AppError from err's chain
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Common errors
var (
	ErrInvalidCredentials = NewAppError(ErrCodeInvalidCredentials, "Invalid username or password", http.StatusUnauthorized)
	ErrSessionExpired     = NewAppError(ErrCodeSessionExpired, "Session expired, please log in again", http.StatusUnauthorized)
	ErrBackendUnreachable = NewAppError(ErrCodeBackendUnreachable, "Portal backend is unreachable", http.StatusBadGateway)
	ErrRateLimitExceeded  = NewAppError(ErrCodeRateLimitExceeded, "Too many login attempts", http.StatusTooManyRequests)
	ErrUnauthorized       = NewAppError(ErrCodeUnauthorized, "Not authenticated", http.StatusUnauthorized)
	ErrForbidden          = NewAppError(ErrCodeForbidden, "You do not have access to this page", http.StatusForbidden)
	ErrNotFound           = NewAppError(ErrCodeNotFound, "Not found", http.StatusNotFound)
	ErrPayloadTooLarge    = NewAppError(ErrCodePayloadTooLarge, "Request body is too large", http.StatusRequestEntityTooLarge)
	ErrBackendResponse    = NewAppError(ErrCodeBackendError, "Portal backend sent an unusable response", http.StatusBadGateway)
)
