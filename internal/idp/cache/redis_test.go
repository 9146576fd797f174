package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	r := NewRedisWithClient(client, "test:")
	t.Cleanup(func() { _ = r.Close() })
	return r, mr
}

func TestRedisGetSetDelete(t *testing.T) {
	ctx := context.Background()
	r, mr := newTestRedis(t)

	_, ok, err := r.Get(ctx, "app-1")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, r.Set(ctx, "app-1", []byte(`{"id":"app-1"}`), time.Minute))
	require.True(t, mr.Exists("test:app-1"), "keys are namespaced")

	v, ok, err := r.Get(ctx, "app-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.JSONEq(t, `{"id":"app-1"}`, string(v))

	require.NoError(t, r.Delete(ctx, "app-1"))
	_, ok, err = r.Get(ctx, "app-1")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisTTL(t *testing.T) {
	ctx := context.Background()
	r, mr := newTestRedis(t)

	require.NoError(t, r.Set(ctx, "k", []byte("v"), time.Minute))
	mr.FastForward(time.Minute)

	_, ok, err := r.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisBackendFailure(t *testing.T) {
	ctx := context.Background()
	r, mr := newTestRedis(t)
	mr.Close()

	_, _, err := r.Get(ctx, "k")
	require.Error(t, err)
	require.Error(t, r.Ping(ctx))
}

func TestNewRedisBadURL(t *testing.T) {
	_, err := NewRedis(context.Background(), "not a url", "")
	require.Error(t, err)
}
