package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type memoryEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// MemoryLimiter is a process local login limiter for deployments without Redis.
// Every key gets a token bucket of maxAttempts failures that refills over window.
// A bucket left alone for a whole window is full again and gets dropped.
type MemoryLimiter struct {
	mu        sync.Mutex
	entries   map[string]*memoryEntry
	limit     rate.Limit
	burst     int
	window    time.Duration
	now       func() time.Time
	nextSweep time.Time
}

// NewMemoryLimiter creates an in-memory login limiter
func NewMemoryLimiter(window time.Duration, maxAttempts int) *MemoryLimiter {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &MemoryLimiter{
		entries: make(map[string]*memoryEntry),
		limit:   rate.Every(window / time.Duration(maxAttempts)),
		burst:   maxAttempts,
		window:  window,
		now:     time.Now,
	}
}

func memoryKey(username, ipAddress string) string {
	return ipAddress + ":" + normalize(username)
}

// CheckLoginAttempt checks if a login attempt is allowed
func (m *MemoryLimiter) CheckLoginAttempt(ctx context.Context, username, ipAddress string) (bool, int, time.Duration, error) {
	now := m.now()

	m.mu.Lock()
	m.sweepLocked(now)
	e, ok := m.entries[memoryKey(username, ipAddress)]
	m.mu.Unlock()

	// No failures on record
	if !ok {
		return true, m.burst, 0, nil
	}

	tokens := e.limiter.TokensAt(now)
	if tokens >= 1 {
		return true, int(tokens), 0, nil
	}

	wait := time.Duration((1 - tokens) / float64(e.limiter.Limit()) * float64(time.Second))
	return false, 0, wait, nil
}

// RecordFailedAttempt spends one attempt
func (m *MemoryLimiter) RecordFailedAttempt(ctx context.Context, username, ipAddress string) error {
	now := m.now()
	key := memoryKey(username, ipAddress)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.sweepLocked(now)
	e, ok := m.entries[key]
	if !ok {
		e = &memoryEntry{limiter: rate.NewLimiter(m.limit, m.burst)}
		m.entries[key] = e
	}
	e.lastSeen = now
	e.limiter.AllowN(now, 1)
	return nil
}

// RecordSuccessfulAttempt forgets all failures of the key
func (m *MemoryLimiter) RecordSuccessfulAttempt(ctx context.Context, username, ipAddress string) error {
	m.mu.Lock()
	delete(m.entries, memoryKey(username, ipAddress))
	m.mu.Unlock()
	return nil
}

// sweepLocked drops idle buckets at most once per window
func (m *MemoryLimiter) sweepLocked(now time.Time) {
	if now.Before(m.nextSweep) {
		return
	}
	for k, e := range m.entries {
		if now.Sub(e.lastSeen) >= m.window {
			delete(m.entries, k)
		}
	}
	m.nextSweep = now.Add(m.window)
}

func (m *MemoryLimiter) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
