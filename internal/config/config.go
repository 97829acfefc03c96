package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Store drivers
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreFile   = "file"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Port string `envconfig:"PORT" default:"3000"`
	Env  string `envconfig:"ENV" default:"development"`

	// Backend configuration
	Backend BackendConfig

	// Token store configuration
	Store StoreConfig

	// Session configuration
	Session SessionConfig

	// CORS configuration
	CORS CORSConfig

	// Rate limiting configuration
	RateLimit RateLimitConfig
}

// BackendConfig holds the portal REST backend location
type BackendConfig struct {
	BaseURL string        `envconfig:"BACKEND_BASE_URL" default:"http://localhost:8080/project1"`
	Timeout time.Duration `envconfig:"BACKEND_TIMEOUT" default:"20s"`
}

// StoreConfig selects where session tokens are kept
type StoreConfig struct {
	Driver    string `envconfig:"STORE_DRIVER" default:"memory"`
	RedisURL  string `envconfig:"REDIS_URL"`
	FilePath  string `envconfig:"STORE_FILE_PATH" default:"portal-sessions.json"`
	KeyPrefix string `envconfig:"STORE_KEY_PREFIX" default:"portal:"`
}

// SessionConfig holds browser session settings
type SessionConfig struct {
	TTL           time.Duration `envconfig:"SESSION_TTL" default:"720h"`
	CookieName    string        `envconfig:"SESSION_COOKIE_NAME" default:"portal_client"`
	LoginPath     string        `envconfig:"LOGIN_PATH" default:"/login"`
	ForbiddenPath string        `envconfig:"FORBIDDEN_PATH" default:"/403-forbidden"`
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:5173"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Window          time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"10m"`
	MaxAttempts     int           `envconfig:"RATE_LIMIT_MAX_ATTEMPTS" default:"5"`
	LockoutDuration time.Duration `envconfig:"RATE_LIMIT_LOCKOUT_DURATION" default:"15m"`
}

// Load loads configuration from environment variables. A .env file in the
// working directory, or the one named by ENV_FILE, is read first; variables
// already set in the environment win.
func Load() (*Config, error) {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read %s: %w", envFile, err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks combinations envconfig cannot express
func (c *Config) Validate() error {
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("BACKEND_BASE_URL must be an absolute URL, got %q", c.Backend.BaseURL)
	}

	switch c.Store.Driver {
	case StoreMemory, StoreFile:
	case StoreRedis:
		if c.Store.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when STORE_DRIVER is %q", StoreRedis)
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver)
	}

	if c.RateLimit.MaxAttempts < 1 {
		return fmt.Errorf("RATE_LIMIT_MAX_ATTEMPTS must be positive")
	}
	return nil
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
