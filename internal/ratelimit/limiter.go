// Package ratelimit throttles login attempts per username and client address.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Limiter handles rate limiting using Redis
type Limiter struct {
	client          *redis.Client
	prefix          string
	window          time.Duration // Time window for counting attempts
	maxAttempts     int           // Maximum attempts allowed in window
	lockoutDuration time.Duration // How long to block after exceeding limit
	logger          *zap.Logger
}

// NewLimiter creates a new rate limiter
func NewLimiter(client *redis.Client, prefix string, window time.Duration, maxAttempts int, lockoutDuration time.Duration, logger *zap.Logger) *Limiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Limiter{
		client:          client,
		prefix:          prefix,
		window:          window,
		maxAttempts:     maxAttempts,
		lockoutDuration: lockoutDuration,
		logger:          logger,
	}
}

// LoginAttemptKey returns the Redis key for tracking login attempts
func (l *Limiter) LoginAttemptKey(username, ipAddress string) string {
	return fmt.Sprintf("%sratelimit:login:%s:%s", l.prefix, ipAddress, normalize(username))
}

// LoginLockoutKey returns the Redis key for lockout status
func (l *Limiter) LoginLockoutKey(username, ipAddress string) string {
	return fmt.Sprintf("%sratelimit:lockout:%s:%s", l.prefix, ipAddress, normalize(username))
}

// CheckLoginAttempt checks if a login attempt is allowed
// Returns: allowed (bool), remainingAttempts (int), lockoutRemaining (time.Duration), error
func (l *Limiter) CheckLoginAttempt(ctx context.Context, username, ipAddress string) (bool, int, time.Duration, error) {
	lockoutKey := l.LoginLockoutKey(username, ipAddress)

	// Check if currently locked out
	ttl, err := l.client.TTL(ctx, lockoutKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, 0, 0, fmt.Errorf("failed to check lockout status: %w", err)
	}

	if ttl > 0 {
		// Still locked out
		return false, 0, ttl, nil
	}

	// Check attempt count
	attemptKey := l.LoginAttemptKey(username, ipAddress)
	count, err := l.client.Get(ctx, attemptKey).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, 0, 0, fmt.Errorf("failed to get attempt count: %w", err)
	}

	remaining := l.maxAttempts - count
	if remaining <= 0 {
		// Exceeded max attempts, initiate lockout
		if err := l.client.Set(ctx, lockoutKey, "1", l.lockoutDuration).Err(); err != nil {
			return false, 0, 0, fmt.Errorf("failed to set lockout: %w", err)
		}
		// Clear attempt counter
		if err := l.client.Del(ctx, attemptKey).Err(); err != nil {
			l.logger.Warn("failed to clear attempt counter", zap.Error(err))
		}
		return false, 0, l.lockoutDuration, nil
	}

	// Attempt allowed
	return true, remaining, 0, nil
}

// RecordFailedAttempt records a failed login attempt
func (l *Limiter) RecordFailedAttempt(ctx context.Context, username, ipAddress string) error {
	attemptKey := l.LoginAttemptKey(username, ipAddress)

	// Increment attempt counter
	count, err := l.client.Incr(ctx, attemptKey).Result()
	if err != nil {
		return fmt.Errorf("failed to increment attempt counter: %w", err)
	}

	// the window starts at the first failure
	if count == 1 {
		if err := l.client.Expire(ctx, attemptKey, l.window).Err(); err != nil {
			return fmt.Errorf("failed to set expiry: %w", err)
		}
	}

	return nil
}

// RecordSuccessfulAttempt clears the attempt counter after a successful login
func (l *Limiter) RecordSuccessfulAttempt(ctx context.Context, username, ipAddress string) error {
	// Clear attempt counter
	if err := l.client.Del(ctx, l.LoginAttemptKey(username, ipAddress)).Err(); err != nil {
		return fmt.Errorf("failed to clear attempt counter: %w", err)
	}
	return nil
}

// ClearLockout manually clears a lockout
func (l *Limiter) ClearLockout(ctx context.Context, username, ipAddress string) error {
	lockoutKey := l.LoginLockoutKey(username, ipAddress)
	attemptKey := l.LoginAttemptKey(username, ipAddress)

	// Clear both lockout and attempt counter
	if err := l.client.Del(ctx, lockoutKey, attemptKey).Err(); err != nil {
		return fmt.Errorf("failed to clear lockout: %w", err)
	}
	return nil
}

// GetAttemptCount returns the current attempt count
func (l *Limiter) GetAttemptCount(ctx context.Context, username, ipAddress string) (int, error) {
	count, err := l.client.Get(ctx, l.LoginAttemptKey(username, ipAddress)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get attempt count: %w", err)
	}
	return count, nil
}

func normalize(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
