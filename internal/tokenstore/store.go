// Package tokenstore persists one client's access and refresh tokens.
package tokenstore

import (
	"context"
	"fmt"

	"github.com/internhub/portal/internal/storage"
)

// Fixed storage keys
const (
	AccessTokenKey  = "accessToken"
	RefreshTokenKey = "refreshToken"
	RedirectKey     = "redirectAfterLogin"
)

// TokenStore is a mechanical get/set/remove wrapper over a storage.Store,
// scoped to one client. It performs no validation.
type TokenStore struct {
	store     storage.Store
	namespace string
}

// New creates a token store for the client identified by namespace.
// An empty namespace uses the bare keys, which suits single-client stores.
func New(store storage.Store, namespace string) *TokenStore {
	return &TokenStore{store: store, namespace: namespace}
}

func (t *TokenStore) key(k string) string {
	if t.namespace == "" {
		return k
	}
	return t.namespace + ":" + k
}

func (t *TokenStore) get(ctx context.Context, k string) (string, error) {
	v, ok, err := t.store.Get(ctx, t.key(k))
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", k, err)
	}
	if !ok {
		return "", nil
	}
	return v, nil
}

func (t *TokenStore) set(ctx context.Context, k, v string) error {
	if err := t.store.Set(ctx, t.key(k), v); err != nil {
		return fmt.Errorf("failed to write %s: %w", k, err)
	}
	return nil
}

func (t *TokenStore) remove(ctx context.Context, keys ...string) error {
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = t.key(k)
	}
	if err := t.store.Delete(ctx, full...); err != nil {
		return fmt.Errorf("failed to remove %v: %w", keys, err)
	}
	return nil
}

// AccessToken returns the stored access token, or "" when absent
func (t *TokenStore) AccessToken(ctx context.Context) (string, error) {
	return t.get(ctx, AccessTokenKey)
}

// SetAccessToken stores the access token
func (t *TokenStore) SetAccessToken(ctx context.Context, token string) error {
	return t.set(ctx, AccessTokenKey, token)
}

// RemoveAccessToken deletes the access token
func (t *TokenStore) RemoveAccessToken(ctx context.Context) error {
	return t.remove(ctx, AccessTokenKey)
}

// RefreshToken returns the stored refresh token, or "" when absent
func (t *TokenStore) RefreshToken(ctx context.Context) (string, error) {
	return t.get(ctx, RefreshTokenKey)
}

// SetRefreshToken stores the refresh token
func (t *TokenStore) SetRefreshToken(ctx context.Context, token string) error {
	return t.set(ctx, RefreshTokenKey, token)
}

// RemoveRefreshToken deletes the refresh token
func (t *TokenStore) RemoveRefreshToken(ctx context.Context) error {
	return t.remove(ctx, RefreshTokenKey)
}

// RedirectPath returns the path recorded before a login redirect, or ""
func (t *TokenStore) RedirectPath(ctx context.Context) (string, error) {
	return t.get(ctx, RedirectKey)
}

// SetRedirectPath records the path to return to after login
func (t *TokenStore) SetRedirectPath(ctx context.Context, path string) error {
	return t.set(ctx, RedirectKey, path)
}

// RemoveRedirectPath forgets the recorded path
func (t *TokenStore) RemoveRedirectPath(ctx context.Context) error {
	return t.remove(ctx, RedirectKey)
}

// Clear removes both tokens
func (t *TokenStore) Clear(ctx context.Context) error {
	return t.remove(ctx, AccessTokenKey, RefreshTokenKey)
}
