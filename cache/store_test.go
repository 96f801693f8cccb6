package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, ""), mr
}

func TestStoresInvalidateByTag(t *testing.T) {
	redisStore, _ := newRedisStore(t)
	stores := map[string]Store{
		"memory": NewMemoryStore(),
		"redis":  redisStore,
	}

	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Set(ctx, "a", []byte("1"), time.Minute, "counts", "counts:acme"))
			require.NoError(t, store.Set(ctx, "b", []byte("2"), time.Minute, "counts", "counts:zeta"))
			require.NoError(t, store.Set(ctx, "c", []byte("3"), time.Minute, "members"))

			got, ok, err := store.Get(ctx, "a")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, []byte("1"), got)

			require.NoError(t, store.Invalidate(ctx, "counts:acme"))
			_, ok, err = store.Get(ctx, "a")
			require.NoError(t, err)
			assert.False(t, ok)
			_, ok, err = store.Get(ctx, "b")
			require.NoError(t, err)
			assert.True(t, ok)

			require.NoError(t, store.Invalidate(ctx, "counts", "unknown"))
			_, ok, err = store.Get(ctx, "b")
			require.NoError(t, err)
			assert.False(t, ok)
			_, ok, err = store.Get(ctx, "c")
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}

func TestMemoryStoreExpires(t *testing.T) {
	store := NewMemoryStore()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Hour, "t"))
	now = now.Add(59 * time.Minute)
	_, ok, _ := store.Get(ctx, "k")
	assert.True(t, ok)

	now = now.Add(time.Minute)
	_, ok, _ = store.Get(ctx, "k")
	assert.False(t, ok)
	assert.Zero(t, store.Len())
}

func TestMemoryStoreOverwriteDropsOldTags(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("old"), time.Hour, "old"))
	require.NoError(t, store.Set(ctx, "k", []byte("new"), time.Hour, "new"))
	require.NoError(t, store.Invalidate(ctx, "old"))

	got, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("new"), got)
}

func TestRedisStoreExpires(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Hour, "t"))
	mr.FastForward(time.Hour + time.Second)

	_, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}
