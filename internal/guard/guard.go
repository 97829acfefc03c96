package guard

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/internhub/portal/internal/middleware"
	"github.com/internhub/portal/internal/session"
	"github.com/internhub/portal/internal/user"
	apperrors "github.com/internhub/portal/pkg/errors"
	"github.com/internhub/portal/pkg/response"
)

// AccountKey is the gin context key holding the authorized account
const AccountKey = "account"

// Default redirect targets
const (
	DefaultLoginPath     = "/login"
	DefaultForbiddenPath = "/403-forbidden"
)

// Guard wraps portal views with a session and role check
type Guard struct {
	sessions      *session.Provider
	loginPath     string
	forbiddenPath string
	logger        *zap.Logger
	observe       func(State)
}

// Option configures a Guard
type Option func(*Guard)

// WithPaths sets the login and forbidden redirect targets
func WithPaths(loginPath, forbiddenPath string) Option {
	return func(g *Guard) {
		if loginPath != "" {
			g.loginPath = loginPath
		}
		if forbiddenPath != "" {
			g.forbiddenPath = forbiddenPath
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(g *Guard) {
		g.logger = l
	}
}

// WithDecisionObserver registers fn to be told every decision
func WithDecisionObserver(fn func(State)) Option {
	return func(g *Guard) {
		g.observe = fn
	}
}

// New creates a guard over the given sessions
func New(sessions *session.Provider, opts ...Option) *Guard {
	g := &Guard{
		sessions:      sessions,
		loginPath:     DefaultLoginPath,
		forbiddenPath: DefaultForbiddenPath,
		logger:        zap.NewNop(),
		observe:       func(State) {},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// LoginPath returns the login redirect target
func (g *Guard) LoginPath() string {
	return g.loginPath
}

// ForbiddenPath returns the forbidden redirect target
func (g *Guard) ForbiddenPath() string {
	return g.forbiddenPath
}

// Require admits requests whose current user holds at least one of roles.
// The handler chain is held until the user lookup completes, so neither the
// view nor a redirect is written before the decision.
func (g *Guard) Require(roles ...user.Role) gin.HandlerFunc {
	allowed := user.NewRoleSet(roles...)

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		svc := g.sessions.Session(middleware.ClientID(c))

		check := NewCheck()
		account := svc.CurrentUser(ctx)
		state := check.Resolve(account, svc.IsExpired(ctx), allowed)
		g.observe(state)

		switch state {
		case Unauthenticated:
			if err := svc.RememberPath(ctx, c.Request.URL.RequestURI()); err != nil {
				g.logger.Warn("failed to remember path", zap.Error(err))
			}
			g.deny(c, apperrors.ErrUnauthorized.WithRedirect(g.loginPath))
		case Forbidden:
			g.logger.Info("role check failed",
				zap.String("path", c.Request.URL.Path),
				zap.String("username", account.Username),
				zap.Any("allowed", allowed.Slice()),
			)
			g.deny(c, apperrors.ErrForbidden.WithRedirect(g.forbiddenPath))
		default:
			c.Set(AccountKey, check.Account())
			c.Next()
		}
	}
}

func (g *Guard) deny(c *gin.Context, err *apperrors.AppError) {
	if WantsJSON(c) {
		response.Abort(c, err)
		return
	}
	c.Redirect(http.StatusFound, err.Redirect)
	c.Abort()
}

// WantsJSON reports whether the caller is a script rather than a browser navigation
func WantsJSON(c *gin.Context) bool {
	if c.GetHeader("X-Requested-With") == "XMLHttpRequest" {
		return true
	}
	return strings.Contains(c.GetHeader("Accept"), "application/json")
}

// AccountFrom returns the account stored by Require
func AccountFrom(c *gin.Context) *user.Account {
	v, ok := c.Get(AccountKey)
	if !ok {
		return nil
	}
	account, _ := v.(*user.Account)
	return account
}
