package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/internhub/portal/internal/apiclient"
	"github.com/internhub/portal/internal/auth"
	"github.com/internhub/portal/internal/config"
	"github.com/internhub/portal/internal/guard"
	"github.com/internhub/portal/internal/middleware"
	"github.com/internhub/portal/internal/portal"
	"github.com/internhub/portal/internal/ratelimit"
	"github.com/internhub/portal/internal/session"
	"github.com/internhub/portal/internal/storage"
	"github.com/internhub/portal/internal/user"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	var logger *zap.Logger
	if cfg.IsDevelopment() {
		logger, _ = zap.NewDevelopment()
	} else {
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	logger.Info("Starting Internship Portal Gateway",
		zap.String("env", cfg.Env),
		zap.String("backend", cfg.Backend.BaseURL),
		zap.String("store", cfg.Store.Driver),
	)

	// Token store and login limiter
	var (
		store       storage.Store
		limiter     auth.RateLimiter
		healthCheck func(context.Context) error
	)
	switch cfg.Store.Driver {
	case config.StoreRedis:
		var redisClient *redis.Client
		redisClient, err = storage.NewRedisClient(cfg.Store.RedisURL)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		logger.Info("Connected to Redis")

		redisStore := storage.NewRedisStore(redisClient, cfg.Store.KeyPrefix, cfg.Session.TTL)
		store = redisStore
		healthCheck = redisStore.Health
		limiter = ratelimit.NewLimiter(
			redisClient,
			cfg.Store.KeyPrefix,
			cfg.RateLimit.Window,
			cfg.RateLimit.MaxAttempts,
			cfg.RateLimit.LockoutDuration,
			logger,
		)
	case config.StoreFile:
		store = storage.NewFileStore(cfg.Store.FilePath)
		limiter = ratelimit.NewMemoryLimiter(cfg.RateLimit.Window, cfg.RateLimit.MaxAttempts)
	default:
		store = storage.NewMemoryStore(storage.WithTTL(cfg.Session.TTL))
		limiter = ratelimit.NewMemoryLimiter(cfg.RateLimit.Window, cfg.RateLimit.MaxAttempts)
	}

	// Backend pipeline
	transport, err := apiclient.NewTransport(cfg.Backend.BaseURL, cfg.Backend.Timeout,
		apiclient.WithLogger(logger.Named("backend")),
	)
	if err != nil {
		logger.Fatal("Failed to configure backend transport", zap.Error(err))
	}

	// Initialize services
	sessions := session.NewProvider(
		store,
		session.NewAuthAPI(transport),
		user.NewRepository(transport),
		session.WithLogger(logger.Named("session")),
		session.WithTimeout(cfg.Backend.Timeout),
		session.WithRefreshObserver(middleware.RecordRefresh),
	)
	routeGuard := guard.New(sessions,
		guard.WithPaths(cfg.Session.LoginPath, cfg.Session.ForbiddenPath),
		guard.WithLogger(logger.Named("guard")),
		guard.WithDecisionObserver(func(s guard.State) { middleware.RecordGuardDecision(s.String()) }),
	)

	// Initialize handlers
	authOpts := []auth.HandlerOption{auth.WithLoginPath(cfg.Session.LoginPath)}
	if healthCheck != nil {
		authOpts = append(authOpts, auth.WithHealthCheck(healthCheck))
	}
	authHandler := auth.NewHandler(sessions, limiter, logger.Named("auth"), authOpts...)
	portalHandler := portal.NewHandler(sessions, transport, routeGuard, logger.Named("portal"))

	// Set up Gin router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	allowedOrigins := middleware.ParseAllowedOrigins(cfg.CORS.AllowedOrigins)
	router.Use(middleware.CORS(allowedOrigins))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Metrics())

	// Public routes
	router.GET("/health", authHandler.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Everything below is tied to a browser session
	browser := router.Group("/", middleware.ClientSession(middleware.ClientCookie{
		Name:   cfg.Session.CookieName,
		TTL:    cfg.Session.TTL,
		Secure: cfg.IsProduction(),
	}))

	authGroup := browser.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/logout", authHandler.Logout)
		authGroup.GET("/me", authHandler.Me)
		authGroup.GET("/events", authHandler.Events)
	}

	portalHandler.RegisterRoutes(browser)
	router.NoRoute(portalHandler.NotFound)

	// Create HTTP server
	server := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.Port),
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// no WriteTimeout: /auth/events streams stay open
		IdleTimeout: 60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Starting server", zap.String("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown with 5 second timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server stopped")
}
