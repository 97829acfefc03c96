package auth

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/internhub/portal/internal/apiclient"
	"github.com/internhub/portal/internal/middleware"
	"github.com/internhub/portal/internal/session"
	"github.com/internhub/portal/internal/user"
	apperrors "github.com/internhub/portal/pkg/errors"
	"github.com/internhub/portal/pkg/response"
)

const eventsHeartbeat = 30 * time.Second

// RateLimiter interface for rate limiting
type RateLimiter interface {
	CheckLoginAttempt(ctx context.Context, username, ipAddress string) (allowed bool, remaining int, lockoutRemaining time.Duration, err error)
	RecordFailedAttempt(ctx context.Context, username, ipAddress string) error
	RecordSuccessfulAttempt(ctx context.Context, username, ipAddress string) error
}

// LoginRequest represents a login request
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse represents a login response. Tokens stay in the gateway.
type LoginResponse struct {
	Authenticated bool          `json:"authenticated"`
	Roles         []user.Role   `json:"roles"`
	User          *user.Account `json:"user,omitempty"`
	Redirect      string        `json:"redirect"`
}

// Handler handles authentication HTTP requests
type Handler struct {
	sessions  *session.Provider
	limiter   RateLimiter
	logger    *zap.Logger
	loginPath string
	ping      func(context.Context) error
}

// HandlerOption configures a Handler
type HandlerOption func(*Handler)

// WithLoginPath sets where logged out clients are sent
func WithLoginPath(path string) HandlerOption {
	return func(h *Handler) {
		h.loginPath = path
	}
}

// WithHealthCheck adds a dependency check to the health endpoint
func WithHealthCheck(ping func(context.Context) error) HandlerOption {
	return func(h *Handler) {
		h.ping = ping
	}
}

// NewHandler creates a new authentication handler. limiter may be nil.
func NewHandler(sessions *session.Provider, limiter RateLimiter, logger *zap.Logger, opts ...HandlerOption) *Handler {
	h := &Handler{
		sessions:  sessions,
		limiter:   limiter,
		logger:    logger,
		loginPath: "/login",
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Login handles username/password login
// POST /auth/login
func (h *Handler) Login(c *gin.Context) {
	start := time.Now()
	ctx := c.Request.Context()

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "Invalid request body")
		return
	}
	req.Username = SanitizeUsername(req.Username)
	if err := ValidateLoginRequest(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	ipAddress := c.ClientIP()

	if h.limiter != nil {
		allowed, _, lockoutRemaining, err := h.limiter.CheckLoginAttempt(ctx, req.Username, ipAddress)
		if err != nil {
			// the limiter must not lock everybody out when its store is down
			h.logger.Warn("rate limiter error", zap.Error(err))
		} else if !allowed {
			middleware.RecordRateLimitHit()
			middleware.RecordLoginAttempt("blocked", time.Since(start))
			c.Header("Retry-After", strconv.Itoa(int(lockoutRemaining.Round(time.Second).Seconds())))
			response.Error(c, apperrors.ErrRateLimitExceeded)
			return
		}
	}

	svc := h.sessions.Session(middleware.ClientID(c))
	result, err := svc.Login(ctx, req.Username, req.Password)
	if err != nil {
		h.loginFailed(c, req.Username, ipAddress, start, err)
		return
	}

	if h.limiter != nil {
		if err := h.limiter.RecordSuccessfulAttempt(ctx, req.Username, ipAddress); err != nil {
			h.logger.Warn("failed to reset login attempts", zap.Error(err))
		}
	}
	middleware.RecordLoginAttempt("success", time.Since(start))

	account := svc.CurrentUser(ctx)
	redirect := svc.TakeRememberedPath(ctx)
	if redirect == "" {
		if account != nil {
			redirect = account.HomePath()
		} else {
			redirect = user.HomePathFor(result.Roles)
		}
	}

	roles := result.Roles
	if account != nil {
		roles = account.Roles
	}

	response.Success(c, http.StatusOK, LoginResponse{
		Authenticated: true,
		Roles:         roles,
		User:          account,
		Redirect:      redirect,
	})
}

func (h *Handler) loginFailed(c *gin.Context, username, ipAddress string, start time.Time, err error) {
	switch {
	case errors.Is(err, session.ErrInvalidCredentials):
		if h.limiter != nil {
			if rerr := h.limiter.RecordFailedAttempt(c.Request.Context(), username, ipAddress); rerr != nil {
				h.logger.Warn("failed to record login attempt", zap.Error(rerr))
			}
		}
		middleware.RecordLoginAttempt("failure", time.Since(start))
		response.Error(c, apperrors.ErrInvalidCredentials)
	case errors.Is(err, apiclient.ErrUnreachable):
		middleware.RecordLoginAttempt("error", time.Since(start))
		response.Error(c, apperrors.ErrBackendUnreachable)
	default:
		h.logger.Error("login failed", zap.String("username", username), zap.Error(err))
		middleware.RecordLoginAttempt("error", time.Since(start))
		response.Error(c, apperrors.NewAppError(apperrors.ErrCodeBackendError, "Login failed", http.StatusBadGateway))
	}
}

// Logout removes the session's tokens
// POST /auth/logout
func (h *Handler) Logout(c *gin.Context) {
	svc := h.sessions.Session(middleware.ClientID(c))
	if err := svc.Logout(c.Request.Context()); err != nil {
		h.logger.Error("logout failed", zap.Error(err))
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"message":  "Logged out successfully",
		"redirect": h.loginPath,
	})
}

// Me returns the authenticated user's information
// GET /auth/me
func (h *Handler) Me(c *gin.Context) {
	ctx := c.Request.Context()
	svc := h.sessions.Session(middleware.ClientID(c))

	account := svc.CurrentUser(ctx)
	if account == nil {
		response.Error(c, apperrors.ErrUnauthorized.WithRedirect(h.loginPath))
		return
	}

	data := gin.H{"user": account}
	if claims := svc.Claims(ctx); claims != nil {
		data["expiresAt"] = claims.ExpiresAt
	}
	response.Success(c, http.StatusOK, data)
}

// Events streams the session's change events as server-sent events
// GET /auth/events
func (h *Handler) Events(c *gin.Context) {
	svc := h.sessions.Session(middleware.ClientID(c))

	events := make(chan session.Event, 16)
	unsubscribe := svc.OnSessionChange(func(e session.Event) {
		select {
		case events <- e:
		default:
			// slow reader; it resyncs through /auth/me
		}
	})
	defer unsubscribe()

	heartbeat := time.NewTicker(eventsHeartbeat)
	defer heartbeat.Stop()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case e := <-events:
			c.SSEvent(string(e.Kind), e)
			return true
		case <-heartbeat.C:
			c.SSEvent("ping", gin.H{"at": time.Now().UTC()})
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// Health returns the health status
// GET /health
func (h *Handler) Health(c *gin.Context) {
	if h.ping != nil {
		if err := h.ping(c.Request.Context()); err != nil {
			h.logger.Warn("health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
	})
}
