// Package portal serves the portal's view routes and proxies API calls to the
// backend on behalf of the browser's session.
package portal

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/internhub/portal/internal/apiclient"
	"github.com/internhub/portal/internal/guard"
	"github.com/internhub/portal/internal/middleware"
	"github.com/internhub/portal/internal/session"
	apperrors "github.com/internhub/portal/pkg/errors"
	"github.com/internhub/portal/pkg/response"
)

const maxProxyBody = 20 << 20

// passed through from backend responses
var forwardedHeaders = []string{"Content-Type", "Content-Disposition", "Cache-Control", "ETag", "Last-Modified"}

// View describes a portal page for the frontend shell
type View struct {
	Name  string      `json:"view"`
	Path  string      `json:"path"`
	Roles interface{} `json:"roles,omitempty"`
	User  interface{} `json:"user,omitempty"`
}

// Handler serves views and the API proxy
type Handler struct {
	sessions  *session.Provider
	transport *apiclient.Transport
	guard     *guard.Guard
	logger    *zap.Logger
}

// NewHandler creates a new portal handler
func NewHandler(sessions *session.Provider, transport *apiclient.Transport, g *guard.Guard, logger *zap.Logger) *Handler {
	return &Handler{
		sessions:  sessions,
		transport: transport,
		guard:     g,
		logger:    logger,
	}
}

// RegisterRoutes mounts the login and forbidden pages, every route of the
// route table and the API proxy on r.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET(h.guard.LoginPath(), h.page("login"))
	r.GET(h.guard.ForbiddenPath(), h.page("403-forbidden"))

	for _, route := range guard.Routes() {
		if route.Public() {
			r.GET(route.Path, h.view(route))
			continue
		}
		r.GET(route.Path, h.guard.Require(route.Roles...), h.view(route))
	}

	r.Any("/api/*path", h.Proxy)
}

// NotFound sends unknown routes to the login page
func (h *Handler) NotFound(c *gin.Context) {
	if guard.WantsJSON(c) {
		response.Error(c, apperrors.ErrNotFound.WithRedirect(h.guard.LoginPath()))
		return
	}
	c.Redirect(http.StatusFound, h.guard.LoginPath())
}

func (h *Handler) page(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		response.Success(c, http.StatusOK, View{Name: name, Path: c.Request.URL.Path})
	}
}

func (h *Handler) view(route guard.Route) gin.HandlerFunc {
	return func(c *gin.Context) {
		v := View{Name: route.View, Path: c.Request.URL.Path}
		if !route.Public() {
			v.Roles = route.Roles
		}
		if account := guard.AccountFrom(c); account != nil {
			v.User = account
		}
		response.Success(c, http.StatusOK, v)
	}
}

// Proxy forwards /api/* to the backend with the session's bearer token
// ANY /api/*path
func (h *Handler) Proxy(c *gin.Context) {
	ctx := c.Request.Context()

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxProxyBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, apperrors.ErrPayloadTooLarge)
			return
		}
		response.ValidationError(c, "Failed to read request body")
		return
	}

	req := &apiclient.Request{
		Method:      c.Request.Method,
		Path:        c.Param("path"),
		Query:       c.Request.URL.Query(),
		Body:        body,
		ContentType: c.GetHeader("Content-Type"),
	}
	if accept := c.GetHeader("Accept"); accept != "" {
		req.Header = http.Header{"Accept": []string{accept}}
	}

	svc := h.sessions.Session(middleware.ClientID(c))
	resp, err := apiclient.New(h.transport, svc).Do(ctx, req)
	if err != nil {
		h.proxyFailed(c, req, err)
		return
	}

	h.write(c, resp.StatusCode, resp.Header, resp.Body)
}

func (h *Handler) proxyFailed(c *gin.Context, req *apiclient.Request, err error) {
	var se *apiclient.StatusError

	switch {
	case errors.Is(err, apiclient.ErrSessionExpired):
		middleware.RecordBackendError("session_expired")
		response.Error(c, apperrors.ErrSessionExpired.WithRedirect(h.guard.LoginPath()))
	case errors.Is(err, apiclient.ErrUnreachable):
		middleware.RecordBackendError("unreachable")
		response.Error(c, apperrors.ErrBackendUnreachable)
	case errors.Is(err, apiclient.ErrResponseTooLarge):
		middleware.RecordBackendError("response_too_large")
		h.logger.Warn("backend response over limit",
			zap.String("method", req.Method),
			zap.String("path", req.Path),
		)
		response.Error(c, apperrors.ErrBackendResponse)
	case errors.As(err, &se):
		middleware.RecordBackendError("status")
		h.write(c, se.StatusCode, se.Header, se.Body)
	case errors.Is(err, context.Canceled):
		// client went away
		c.Abort()
	default:
		h.logger.Error("proxy request failed",
			zap.String("method", req.Method),
			zap.String("path", req.Path),
			zap.Error(err),
		)
		response.Error(c, err)
	}
}

func (h *Handler) write(c *gin.Context, status int, header http.Header, body []byte) {
	for _, k := range forwardedHeaders {
		if v := header.Get(k); v != "" {
			c.Header(k, v)
		}
	}
	if len(body) == 0 {
		c.Status(status)
		return
	}
	c.Data(status, header.Get("Content-Type"), body)
}
