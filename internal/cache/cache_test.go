package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGetSet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, m.Set(ctx, "k", []byte("v"), 0))
	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(got))

	// returned slices are copies
	got[0] = 'x'
	again, _ := m.Get(ctx, "k")
	assert.Equal(t, "v", string(again))
}

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	require.NoError(t, m.Set(ctx, "k", []byte("v"), time.Minute))

	now = now.Add(30 * time.Second)
	_, err := m.Get(ctx, "k")
	assert.NoError(t, err)

	now = now.Add(time.Minute)
	_, err = m.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
	assert.Equal(t, 0, m.Len())
}

func newTestRedis(t *testing.T, opts ...Option) (*Redis, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	return NewFromClient(client, opts...), mr
}

func TestRedisGetSet(t *testing.T) {
	ctx := context.Background()
	r, mr := newTestRedis(t, WithPrefix("test:"))

	_, err := r.Get(ctx, "missing")
	assert.True(t, errors.Is(err, ErrMiss))

	require.NoError(t, r.Set(ctx, "k", []byte("v"), 0))
	assert.True(t, mr.Exists("test:k"))

	got, err := r.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(got))
	assert.NoError(t, r.Ping(ctx))
}

func TestRedisTTL(t *testing.T) {
	ctx := context.Background()
	r, mr := newTestRedis(t, WithTTL(time.Second))

	require.NoError(t, r.Set(ctx, "default", []byte("a"), 0))
	require.NoError(t, r.Set(ctx, "explicit", []byte("b"), time.Hour))

	mr.FastForward(2 * time.Second)

	_, err := r.Get(ctx, "default")
	assert.ErrorIs(t, err, ErrMiss)

	got, err := r.Get(ctx, "explicit")
	require.NoError(t, err)
	assert.Equal(t, "b", string(got))
}
