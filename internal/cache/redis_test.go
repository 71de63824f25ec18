package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	store, err := NewRedisStore(context.Background(), RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store, mr
}

func TestNewRedisStoreRequiresAddress(t *testing.T) {
	_, err := NewRedisStore(context.Background(), RedisConfig{Address: "  "})
	require.Error(t, err)
}

func TestRedisStoreSetGetDelete(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "subscription:u1", []byte(`{"plan":"pro"}`), time.Minute))
	require.True(t, mr.Exists("farmlink:subscription:u1"))

	value, ok, err := store.Get(ctx, "subscription:u1")
	require.NoError(t, err)
	require.True(t, ok)
	require.JSONEq(t, `{"plan":"pro"}`, string(value))

	require.NoError(t, store.Delete(ctx, "subscription:u1"))
	_, ok, err = store.Get(ctx, "subscription:u1")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisStoreExpiresKeys(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Second))
	mr.FastForward(2 * time.Second)

	_, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisStoreIncrementWithTTL(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	count, ttl, err := store.IncrementWithTTL(ctx, "rate:1.2.3.4", time.Minute)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
	require.Greater(t, ttl, time.Duration(0))

	count, _, err = store.IncrementWithTTL(ctx, "rate:1.2.3.4", time.Minute)
	require.NoError(t, err)
	require.Equal(t, int64(2), count)

	mr.FastForward(2 * time.Minute)

	count, _, err = store.IncrementWithTTL(ctx, "rate:1.2.3.4", time.Minute)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}

func TestRedisStorePing(t *testing.T) {
	store, _ := newTestRedisStore(t)
	require.NoError(t, store.Ping(context.Background()))
}
