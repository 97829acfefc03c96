package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	authLoginAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_login_attempts_total",
			Help: "Total number of login attempts",
		},
		[]string{"status"}, // success/failure/blocked/error
	)

	authLoginDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "portal_login_duration_seconds",
			Help:    "Login request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
	)

	sessionRefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_session_refresh_total",
			Help: "Total number of token refresh attempts by outcome",
		},
		[]string{"outcome"}, // success/failure/reused/no_refresh_token
	)

	guardDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_guard_decisions_total",
			Help: "Total number of route guard decisions",
		},
		[]string{"state"},
	)

	authRateLimitHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "portal_rate_limit_hits_total",
			Help: "Total number of rate limit hits",
		},
	)

	backendErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_backend_errors_total",
			Help: "Total number of failed proxied backend calls",
		},
		[]string{"kind"}, // status/unreachable/session_expired
	)
)

// Metrics creates a Prometheus metrics middleware
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		// the route template keeps label cardinality bounded
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(duration)
	}
}

// RecordLoginAttempt records a login attempt metric
func RecordLoginAttempt(status string, duration time.Duration) {
	authLoginAttemptsTotal.WithLabelValues(status).Inc()
	authLoginDuration.Observe(duration.Seconds())
}

// RecordRefresh records the outcome of a token refresh
func RecordRefresh(outcome string) {
	sessionRefreshTotal.WithLabelValues(outcome).Inc()
}

// RecordGuardDecision records a route guard decision
func RecordGuardDecision(state string) {
	guardDecisionsTotal.WithLabelValues(state).Inc()
}

// RecordRateLimitHit records a rate limit hit
func RecordRateLimitHit() {
	authRateLimitHitsTotal.Inc()
}

// RecordBackendError records a failed proxied backend call
func RecordBackendError(kind string) {
	backendErrorsTotal.WithLabelValues(kind).Inc()
}
