package storage

import (
	"context"
	"sync"
	"time"
)

// maxSweepInterval caps how long expired entries may linger before a write
// removes them.
const maxSweepInterval = time.Minute

type memoryEntry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// MemoryStore keeps values in process memory. Values do not survive a restart.
// With a TTL every write restarts the key's expiry, the same way RedisStore does.
type MemoryStore struct {
	mu        sync.RWMutex
	values    map[string]memoryEntry
	ttl       time.Duration
	now       func() time.Time
	nextSweep time.Time
}

// MemoryOption configures a MemoryStore
type MemoryOption func(*MemoryStore)

// WithTTL expires keys ttl after their last write. Zero keeps keys forever.
func WithTTL(ttl time.Duration) MemoryOption {
	return func(m *MemoryStore) {
		m.ttl = ttl
	}
}

// WithClock replaces the time source
func WithClock(now func() time.Time) MemoryOption {
	return func(m *MemoryStore) {
		m.now = now
	}
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	m := &MemoryStore{
		values: make(map[string]memoryEntry),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns the value stored under key
func (m *MemoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, ErrEmptyKey
	}
	now := m.now()

	m.mu.RLock()
	e, ok := m.values[key]
	m.mu.RUnlock()
	if !ok {
		return "", false, nil
	}
	if e.expired(now) {
		m.mu.Lock()
		// re-check, a writer may have renewed it
		if cur, ok := m.values[key]; ok && cur.expired(now) {
			delete(m.values, key)
		}
		m.mu.Unlock()
		return "", false, nil
	}
	return e.value, true, nil
}

// Set stores value under key
func (m *MemoryStore) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return ErrEmptyKey
	}
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	e := memoryEntry{value: value}
	if m.ttl > 0 {
		e.expiresAt = now.Add(m.ttl)
	}
	m.values[key] = e
	m.sweepLocked(now)
	return nil
}

// Delete removes keys from the store
func (m *MemoryStore) Delete(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

// Len returns the number of stored keys, expired ones not yet swept included
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.values)
}

// sweepLocked drops expired entries at most once per sweep interval
func (m *MemoryStore) sweepLocked(now time.Time) {
	if m.ttl <= 0 || now.Before(m.nextSweep) {
		return
	}
	for k, e := range m.values {
		if e.expired(now) {
			delete(m.values, k)
		}
	}
	interval := m.ttl
	if interval > maxSweepInterval {
		interval = maxSweepInterval
	}
	m.nextSweep = now.Add(interval)
}
