package session

import (
	"context"
	"fmt"
	"net/http"

	"github.com/internhub/portal/internal/apiclient"
	"github.com/internhub/portal/internal/token"
	"github.com/internhub/portal/internal/user"
)

// Backend authentication endpoints
const (
	LoginPath   = "/auth/login"
	RefreshPath = "/auth/refresh"
)

// Authenticator exchanges credentials and refresh tokens for access tokens
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*token.Pair, error)
}

// AccountSource resolves the account that owns an access token
type AccountSource interface {
	Me(ctx context.Context, accessToken string) (*user.Account, error)
}

// LoginRequest is the body of the login endpoint
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResult is the login endpoint's answer
type LoginResult struct {
	Token         string      `json:"token"`
	RefreshToken  string      `json:"refreshToken,omitempty"`
	Authenticated bool        `json:"authenticated"`
	Roles         []user.Role `json:"roles,omitempty"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// AuthAPI calls the backend authentication endpoints. Requests go out
// without a bearer credential.
type AuthAPI struct {
	transport *apiclient.Transport
}

// NewAuthAPI creates an AuthAPI over transport
func NewAuthAPI(transport *apiclient.Transport) *AuthAPI {
	return &AuthAPI{transport: transport}
}

// Login posts credentials to the login endpoint
func (a *AuthAPI) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	req, err := apiclient.NewJSONRequest(http.MethodPost, LoginPath, LoginRequest{Username: username, Password: password})
	if err != nil {
		return nil, err
	}

	resp, err := a.transport.Do(ctx, req, "")
	if err != nil {
		return nil, fmt.Errorf("failed to log in: %w", err)
	}

	var result LoginResult
	if err := resp.Decode(&result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Refresh trades refreshToken for a new token pair
func (a *AuthAPI) Refresh(ctx context.Context, refreshToken string) (*token.Pair, error) {
	req, err := apiclient.NewJSONRequest(http.MethodPost, RefreshPath, refreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return nil, err
	}

	resp, err := a.transport.Do(ctx, req, "")
	if err != nil {
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}

	var pair token.Pair
	if err := resp.Decode(&pair); err != nil {
		return nil, err
	}
	return &pair, nil
}
