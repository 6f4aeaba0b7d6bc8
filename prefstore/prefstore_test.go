package prefstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trickstertwo/xtheme/sdk"
)

// exerciseStore runs the behavior every backend shares.
func exerciseStore(t *testing.T, s sdk.Store) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "products-view-mode")
	require.NoError(t, err)
	assert.False(t, ok, "unset key")

	require.NoError(t, s.Set(ctx, "products-view-mode", "list"))
	v, ok, err := s.Get(ctx, "products-view-mode")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "list", v)

	require.NoError(t, s.Set(ctx, "products-view-mode", "grid"))
	v, _, err = s.Get(ctx, "products-view-mode")
	require.NoError(t, err)
	assert.Equal(t, "grid", v)

	require.NoError(t, s.Set(ctx, "empty", ""))
	v, ok, err = s.Get(ctx, "empty")
	require.NoError(t, err)
	assert.True(t, ok, "empty values are stored")
	assert.Equal(t, "", v)
}

func TestMemory(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestMemory_Failure(t *testing.T) {
	m := NewMemory()
	boom := errors.New("quota exceeded")
	m.SetFailure(boom)

	ctx := context.Background()
	assert.ErrorIs(t, m.Set(ctx, "k", "v"), boom)
	_, _, err := m.Get(ctx, "k")
	assert.ErrorIs(t, err, boom)

	m.SetFailure(nil)
	assert.NoError(t, m.Set(ctx, "k", "v"))
}

func TestMemory_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, NewMemory().Set(ctx, "k", "v"), context.Canceled)
}

func TestSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "prefs.db")
	s, err := OpenSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	exerciseStore(t, s)

	_, err = os.Stat(path)
	require.NoError(t, err, "database file should exist")
}

func TestSQLite_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.db")
	s, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(context.Background(), "products-view-mode", "list"))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()
	v, ok, err := s.Get(context.Background(), "products-view-mode")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "list", v)
}

func TestRedis(t *testing.T) {
	addr := os.Getenv("XTHEME_TEST_REDIS")
	if addr == "" {
		t.Skip("XTHEME_TEST_REDIS not set")
	}
	s, err := NewRedis(context.Background(), RedisConfig{Addr: addr, Profile: "test-" + uuid.NewString()})
	if errors.Is(err, ErrUnavailable) {
		t.Skipf("Redis not available: %v", err)
	}
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.client.Del(context.Background(), s.Key()).Err()
		s.Close()
	})

	exerciseStore(t, s)
}

func TestNewRedis_Unreachable(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewRedis(ctx, RedisConfig{Addr: "127.0.0.1:1"})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestNewRedisWithClient_DoesNotOwnClient(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer client.Close()
	s := NewRedisWithClient(client, "")
	assert.Equal(t, "xtheme:prefs:default", s.Key())
	assert.NoError(t, s.Close())
}
