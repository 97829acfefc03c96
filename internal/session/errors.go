package session

import "errors"

var (
	// ErrInvalidCredentials is returned by Login when the backend refuses the credentials
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrSessionTerminated is returned when a refresh failed and the stored tokens were cleared.
	// Callers should send the user back to the login page.
	ErrSessionTerminated = errors.New("session terminated")
)
