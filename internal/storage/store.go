// Package storage provides the durable key/value layer that backs the token store.
package storage

import (
	"context"
	"errors"
)

// ErrEmptyKey is returned when a store operation is given an empty key
var ErrEmptyKey = errors.New("storage: empty key")

// Store is a string key/value store that survives reloads of the same client.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the value for key; ok is false when the key is absent
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Set writes value under key, replacing any previous value
	Set(ctx context.Context, key, value string) error
	// Delete removes the given keys; missing keys are not an error
	Delete(ctx context.Context, keys ...string) error
}
