package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const (
	// DefaultTimeout bounds every backend call, refreshes included
	DefaultTimeout = 20 * time.Second

	// DefaultMaxResponseBytes caps how much of a backend response is buffered
	DefaultMaxResponseBytes = 10 << 20
)

// Transport is the single configured request pipeline shared by all backend calls.
// It attaches the bearer credential and negotiates the content type but knows
// nothing about refreshing; see Client for that.
type Transport struct {
	baseURL          string
	client           *http.Client
	logger           *zap.Logger
	maxResponseBytes int64
}

// TransportOption configures a Transport
type TransportOption func(*Transport)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(c *http.Client) TransportOption {
	return func(t *Transport) {
		t.client = c
	}
}

// WithMaxResponseBytes sets the largest backend response body accepted
func WithMaxResponseBytes(n int64) TransportOption {
	return func(t *Transport) {
		if n > 0 {
			t.maxResponseBytes = n
		}
	}
}

// WithLogger sets the logger used for request diagnostics
func WithLogger(l *zap.Logger) TransportOption {
	return func(t *Transport) {
		t.logger = l
	}
}

// NewTransport creates a transport for the backend rooted at baseURL
func NewTransport(baseURL string, timeout time.Duration, opts ...TransportOption) (*Transport, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse backend URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("backend URL %q must be absolute", baseURL)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	t := &Transport{
		baseURL:          strings.TrimRight(u.String(), "/"),
		client:           &http.Client{Timeout: timeout},
		logger:           zap.NewNop(),
		maxResponseBytes: DefaultMaxResponseBytes,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Logger returns the transport's logger
func (t *Transport) Logger() *zap.Logger {
	return t.logger
}

func (t *Transport) url(req *Request) string {
	u := t.baseURL + "/" + strings.TrimLeft(req.Path, "/")
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}
	return u
}

// Do sends req once, with accessToken as bearer credential when it is not empty.
// Responses with status >= 400 are returned as *StatusError, requests that got
// no response as *NetworkError.
func (t *Transport) Do(ctx context.Context, req *Request, accessToken string) (*Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, t.url(req), body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}

	if len(req.Body) > 0 {
		// multipart bodies keep their boundary-bearing content type
		if req.ContentType != "" {
			httpReq.Header.Set("Content-Type", req.ContentType)
		} else {
			httpReq.Header.Set("Content-Type", contentTypeJSON)
		}
	}
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", contentTypeJSON)
	}

	if accessToken != "" {
		(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}).SetAuthHeader(httpReq)
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s %s: %w", method, req.Path, ctxErr)
		}
		t.logger.Warn("backend unreachable",
			zap.String("method", method),
			zap.String("path", req.Path),
			zap.Error(err),
		)
		return nil, &NetworkError{Method: method, Path: req.Path, Err: err}
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, t.maxResponseBytes+1))
	if err != nil {
		return nil, &NetworkError{Method: method, Path: req.Path, Err: fmt.Errorf("failed to read response body: %w", err)}
	}
	if int64(len(b)) > t.maxResponseBytes {
		return nil, fmt.Errorf("%s %s: %w (limit %d bytes)", method, req.Path, ErrResponseTooLarge, t.maxResponseBytes)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &StatusError{
			Method:     method,
			Path:       req.Path,
			StatusCode: resp.StatusCode,
			Header:     resp.Header.Clone(),
			Body:       b,
		}
	}

	return &Response{StatusCode: resp.StatusCode, Header: resp.Header.Clone(), Body: b}, nil
}
