// Package apiclient is the request pipeline used for every call to the portal backend.
package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"
)

// Session is the part of the session service the client reads through.
// Implementations must re-read stored tokens on every call since a concurrent
// refresh may rotate them.
type Session interface {
	Token(ctx context.Context) (string, error)
	RefreshAfter(ctx context.Context, staleToken string) (string, error)
}

// Client sends requests on behalf of one session. A 401 triggers at most one
// refresh, after which the original request is re-issued exactly once.
type Client struct {
	transport *Transport
	session   Session
	logger    *zap.Logger
}

// New creates a client for session over transport
func New(transport *Transport, session Session) *Client {
	return &Client{
		transport: transport,
		session:   session,
		logger:    transport.Logger(),
	}
}

// Do sends req with the session's current access token
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	accessToken, err := c.session.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read access token: %w", err)
	}

	resp, err := c.transport.Do(ctx, req, accessToken)
	if !IsUnauthorized(err) {
		return resp, err
	}

	c.logger.Info("access token rejected, attempting refresh",
		zap.String("method", req.Method),
		zap.String("path", req.Path),
	)

	fresh, rerr := c.session.RefreshAfter(ctx, accessToken)
	if rerr != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %w", ErrSessionExpired, rerr)
	}

	// one retry only; a second 401 is the caller's problem
	return c.transport.Do(ctx, req, fresh)
}

// Get issues a GET request
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	req := NewRequest(http.MethodGet, path)
	req.Query = query
	return c.Do(ctx, req)
}
