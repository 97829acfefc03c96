package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// exerciseStore runs the contract every Store implementation must satisfy
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Set(ctx, "a", "1"))
	require.NoError(t, s.Set(ctx, "b", "2"))

	v, ok, err := s.Get(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "1", v)

	require.NoError(t, s.Set(ctx, "a", "3"))
	v, _, err = s.Get(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, "3", v)

	require.NoError(t, s.Delete(ctx, "a", "b", "never-set"))
	_, ok, err = s.Get(ctx, "a")
	require.NoError(t, err)
	require.False(t, ok)
	_, ok, err = s.Get(ctx, "b")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Delete(ctx))

	require.ErrorIs(t, s.Set(ctx, "", "x"), ErrEmptyKey)
	_, _, err = s.Get(ctx, "")
	require.ErrorIs(t, err, ErrEmptyKey)
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	exerciseStore(t, s)
	require.Equal(t, 0, s.Len())
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	exerciseStore(t, NewFileStore(path))
}

func TestMemoryStore_ExpiresKeys(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s := NewMemoryStore(WithTTL(time.Hour), WithClock(func() time.Time { return now }))

	// anonymous visitors each leave a key behind
	for i := 0; i < 100; i++ {
		require.NoError(t, s.Set(ctx, fmt.Sprintf("client:%d:redirectAfterLogin", i), "/applyList"))
	}
	require.Equal(t, 100, s.Len())

	now = now.Add(30 * time.Minute)
	v, ok, err := s.Get(ctx, "client:7:redirectAfterLogin")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "/applyList", v)

	now = now.Add(time.Hour)
	_, ok, err = s.Get(ctx, "client:7:redirectAfterLogin")
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, 99, s.Len())

	require.NoError(t, s.Set(ctx, "client:fresh:accessToken", "tok"))
	require.Equal(t, 1, s.Len())
}

func TestMemoryStore_WriteRenewsExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s := NewMemoryStore(WithTTL(time.Hour), WithClock(func() time.Time { return now }))

	require.NoError(t, s.Set(ctx, "k", "v1"))
	now = now.Add(50 * time.Minute)
	require.NoError(t, s.Set(ctx, "k", "v2"))
	now = now.Add(50 * time.Minute)

	v, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v2", v)
}

func TestMemoryStore_NoTTLKeepsKeys(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s := NewMemoryStore(WithClock(func() time.Time { return now }))

	require.NoError(t, s.Set(ctx, "k", "v"))
	now = now.Add(24 * 365 * time.Hour)

	_, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestFileStore_ConcurrentWriters(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "session.json")

	// two stores on one file stand in for two processes
	stores := []*FileStore{NewFileStore(path), NewFileStore(path)}

	var wg sync.WaitGroup
	errs := make(chan error, 40)
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- stores[i%2].Set(ctx, "accessToken", fmt.Sprintf("tok-%d", i))
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	var values map[string]string
	require.NoError(t, json.Unmarshal(b, &values))
	require.Contains(t, values["accessToken"], "tok-")

	leftovers, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	require.NoError(t, err)
	require.Empty(t, leftovers)
}

func TestFileStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.json")

	require.NoError(t, NewFileStore(path).Set(ctx, "accessToken", "tok"))

	reopened := NewFileStore(path)
	v, ok, err := reopened.Get(ctx, "accessToken")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "tok", v)
	require.Equal(t, path, reopened.Path())
}

func TestRedisStore(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	s := NewRedisStore(client, "test:", 0)
	exerciseStore(t, s)
	require.NoError(t, s.Health(context.Background()))
}

func TestRedisStore_PrefixAndTTL(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	s := NewRedisStore(client, "", time.Minute)

	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "k", "v"))
	require.True(t, m.Exists("portal:k"))
	require.Equal(t, time.Minute, m.TTL("portal:k"))

	m.FastForward(2 * time.Minute)

	_, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestNewRedisClient_InvalidURL(t *testing.T) {
	_, err := NewRedisClient("not a url")
	require.Error(t, err)
}

func TestNewRedisClient(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	client, err := NewRedisClient("redis://" + m.Addr())
	require.NoError(t, err)
	defer client.Close()
}
