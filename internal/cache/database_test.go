package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/farmlink/marketplace/internal/database/testutil"
)

func newTestDatabaseStore(t *testing.T) (*DatabaseStore, *time.Time) {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	store := NewDatabaseStore(db)

	clock := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return clock }
	return store, &clock
}

func TestNewDatabaseStoreNilDB(t *testing.T) {
	require.Nil(t, NewDatabaseStore(nil))

	var store *DatabaseStore
	_, _, err := store.Get(context.Background(), "k")
	require.Error(t, err)
}

func TestDatabaseStoreSetGetDelete(t *testing.T) {
	store, _ := newTestDatabaseStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("one"), time.Minute))
	require.NoError(t, store.Set(ctx, "k", []byte("two"), time.Minute))

	value, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "two", string(value))

	require.NoError(t, store.Delete(ctx, "k"))
	_, ok, err = store.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDatabaseStoreGetDropsExpired(t *testing.T) {
	store, clock := newTestDatabaseStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Minute))
	*clock = clock.Add(2 * time.Minute)

	_, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDatabaseStoreIncrementWithTTL(t *testing.T) {
	store, clock := newTestDatabaseStore(t)
	ctx := context.Background()

	count, ttl, err := store.IncrementWithTTL(ctx, "rate", time.Minute)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
	require.Equal(t, time.Minute, ttl)

	*clock = clock.Add(20 * time.Second)
	count, ttl, err = store.IncrementWithTTL(ctx, "rate", time.Minute)
	require.NoError(t, err)
	require.Equal(t, int64(2), count)
	require.Equal(t, 40*time.Second, ttl)

	*clock = clock.Add(time.Minute)
	count, _, err = store.IncrementWithTTL(ctx, "rate", time.Minute)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}

func TestDatabaseStorePurgeExpired(t *testing.T) {
	store, clock := newTestDatabaseStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "short", []byte("a"), time.Minute))
	require.NoError(t, store.Set(ctx, "long", []byte("b"), time.Hour))
	require.NoError(t, store.Set(ctx, "forever", []byte("c"), 0))

	removed, err := store.PurgeExpired(ctx, clock.Add(10*time.Minute))
	require.NoError(t, err)
	require.Equal(t, int64(1), removed)

	_, ok, err := store.Get(ctx, "long")
	require.NoError(t, err)
	require.True(t, ok)
	_, ok, err = store.Get(ctx, "forever")
	require.NoError(t, err)
	require.True(t, ok)
}
