package auth

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const maxUsernameLength = 100

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateLoginRequest validates a login request
func ValidateLoginRequest(req *LoginRequest) error {
	errors := make([]ValidationError, 0)

	if strings.TrimSpace(req.Username) == "" {
		errors = append(errors, ValidationError{
			Field:   "username",
			Message: "Username is required",
		})
	} else if utf8.RuneCountInString(req.Username) > maxUsernameLength {
		errors = append(errors, ValidationError{
			Field:   "username",
			Message: fmt.Sprintf("Username must be at most %d characters", maxUsernameLength),
		})
	}

	// backend accounts may have very short passwords, e.g. the seeded admin
	if strings.TrimSpace(req.Password) == "" {
		errors = append(errors, ValidationError{
			Field:   "password",
			Message: "Password is required",
		})
	}

	if len(errors) > 0 {
		return &validationErrors{Errors: errors}
	}

	return nil
}

type validationErrors struct {
	Errors []ValidationError
}

func (e *validationErrors) Error() string {
	messages := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		messages[i] = err.Error()
	}
	return strings.Join(messages, "; ")
}

// SanitizeUsername trims surrounding whitespace. Usernames are case sensitive on the backend.
func SanitizeUsername(username string) string {
	return strings.TrimSpace(username)
}
