package kv

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, "test")
}

func TestRedisStoreRoundTrip(t *testing.T) {
	store := newTestRedisStore(t)
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Set(ctx, "a", []byte("one")))
	value, err := store.Get(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, []byte("one"), value)

	require.NoError(t, store.Delete(ctx, "a"))
	_, err = store.Get(ctx, "a")
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, store.Delete(ctx, "a"))
}

func TestRedisStoreSetIfAbsent(t *testing.T) {
	store := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetIfAbsent(ctx, "owner", []byte("paul")))
	require.ErrorIs(t, store.SetIfAbsent(ctx, "owner", []byte("eve")), ErrExists)

	value, err := store.Get(ctx, "owner")
	require.NoError(t, err)
	require.Equal(t, []byte("paul"), value)
}

func TestRedisStorePrefixIsolation(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	first := NewRedisStore(client, "one")
	second := NewRedisStore(client, "two")
	ctx := context.Background()

	require.NoError(t, first.Set(ctx, "k", []byte("v")))
	_, err := second.Get(ctx, "k")
	require.ErrorIs(t, err, ErrNotFound)
}
