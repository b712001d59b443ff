package store

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client, "test"), mr
}

func TestRedisStoreGetPut(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestRedisStore(t)

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Put(ctx, "k1", []byte("one")))

	value, err := s.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), value)

	require.NoError(t, s.Put(ctx, "k1", []byte("two")))
	value, err = s.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), value)
}

func TestRedisStoreIndexOrderAndMembership(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestRedisStore(t)
	ix := Index{Name: "tenantProduct", Value: "acme.com:demo"}

	require.NoError(t, s.Put(ctx, "k1", []byte("one"), ix))
	require.NoError(t, s.Put(ctx, "k2", []byte("two"), ix))
	// Re-put must not duplicate the bucket membership.
	require.NoError(t, s.Put(ctx, "k1", []byte("one-b"), ix))

	values, err := s.GetByIndex(ctx, ix)
	require.NoError(t, err)
	require.Len(t, values, 2)
	assert.Equal(t, []byte("one-b"), values[0])
	assert.Equal(t, []byte("two"), values[1])
}

func TestRedisStoreDelete(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestRedisStore(t)
	ix := Index{Name: "tenantProduct", Value: "acme.com:demo"}

	require.NoError(t, s.Put(ctx, "k1", []byte("one"), ix))
	require.NoError(t, s.Put(ctx, "k2", []byte("two"), ix))
	require.NoError(t, s.Delete(ctx, "k1"))

	_, err := s.Get(ctx, "k1")
	assert.ErrorIs(t, err, ErrNotFound)

	values, err := s.GetByIndex(ctx, ix)
	require.NoError(t, err)
	require.Len(t, values, 1)
	assert.Equal(t, []byte("two"), values[0])
}

func TestRedisStoreDeleteByIndex(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestRedisStore(t)
	tp1 := Index{Name: "tenantProduct", Value: "acme.com:demo"}
	tp2 := Index{Name: "tenantProduct", Value: "example.com:demo"}

	require.NoError(t, s.Put(ctx, "k1", []byte("one"), tp1))
	require.NoError(t, s.Put(ctx, "k2", []byte("two"), tp1))
	require.NoError(t, s.Put(ctx, "k3", []byte("three"), tp2))

	require.NoError(t, s.DeleteByIndex(ctx, tp1))

	values, err := s.GetByIndex(ctx, tp1)
	require.NoError(t, err)
	assert.Empty(t, values)

	values, err = s.GetByIndex(ctx, tp2)
	require.NoError(t, err)
	assert.Len(t, values, 1)
}

func TestRedisStoreReconcileIndexes(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestRedisStore(t)
	ix := Index{Name: "tenantProduct", Value: "acme.com:demo"}

	require.NoError(t, s.Put(ctx, "k1", []byte("one"), ix))
	require.NoError(t, s.Put(ctx, "k2", []byte("two"), ix))

	// Simulate the crash window: drop the primary record only.
	mr.Del(s.recordKey("k1"))

	removed, err := s.ReconcileIndexes(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	values, err := s.GetByIndex(ctx, ix)
	require.NoError(t, err)
	require.Len(t, values, 1)
	assert.Equal(t, []byte("two"), values[0])
}
