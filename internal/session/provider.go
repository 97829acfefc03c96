// Package session implements the session service: token access, expiry checks,
// the current user lookup and login, logout and refresh.
package session

import (
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/internhub/portal/internal/apiclient"
	"github.com/internhub/portal/internal/storage"
	"github.com/internhub/portal/internal/tokenstore"
)

// Refresh outcomes reported to the refresh observer
const (
	RefreshSucceeded = "success"
	RefreshFailed    = "failure"
	RefreshReused    = "reused"
	RefreshMissing   = "no_refresh_token"
)

// Provider holds the collaborators shared by every client session and
// hands out per-client Services.
type Provider struct {
	store    storage.Store
	auth     Authenticator
	accounts AccountSource
	notifier *Notifier
	group    singleflight.Group
	logger   *zap.Logger
	now      func() time.Time
	timeout  time.Duration
	observe  func(outcome string)
}

// Option configures a Provider
type Option func(*Provider)

// WithNowTime overrides the clock used for expiry checks
func WithNowTime(now func() time.Time) Option {
	return func(p *Provider) {
		p.now = now
	}
}

// WithTimeout bounds backend calls made by the session, refreshes included
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(p *Provider) {
		p.logger = l
	}
}

// WithRefreshObserver registers fn to be told the outcome of every refresh
func WithRefreshObserver(fn func(outcome string)) Option {
	return func(p *Provider) {
		p.observe = fn
	}
}

// NewProvider creates a session provider
func NewProvider(store storage.Store, auth Authenticator, accounts AccountSource, opts ...Option) *Provider {
	p := &Provider{
		store:    store,
		auth:     auth,
		accounts: accounts,
		logger:   zap.NewNop(),
		now:      time.Now,
		timeout:  apiclient.DefaultTimeout,
		observe:  func(string) {},
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.notifier == nil {
		p.notifier = NewNotifier()
	}
	return p
}

// Session returns the session of the client identified by clientID.
// An empty id addresses the single session of a one-user store.
func (p *Provider) Session(clientID string) *Service {
	ns := ""
	if clientID != "" {
		ns = "client:" + clientID
	}
	return &Service{
		provider: p,
		client:   clientID,
		tokens:   tokenstore.New(p.store, ns),
		logger:   p.logger.With(zap.String("client", clientID)),
	}
}

// Notifier returns the notifier session events are published on
func (p *Provider) Notifier() *Notifier {
	return p.notifier
}
