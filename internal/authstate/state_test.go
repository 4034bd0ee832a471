package authstate

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryTakeConsumes(t *testing.T) {
	m := NewMemory(time.Minute)
	defer m.Close()
	ctx := context.Background()

	require.NoError(t, m.Put(ctx, "tok", "user-1"))

	value, ok, err := m.Take(ctx, "tok")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "user-1", value)

	// One-time use.
	_, ok, err = m.Take(ctx, "tok")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryExpiry(t *testing.T) {
	m := NewMemory(time.Minute)
	defer m.Close()
	ctx := context.Background()

	now := time.Now()
	m.now = func() time.Time { return now }
	require.NoError(t, m.Put(ctx, "tok", "user-1"))

	// Advance past the TTL without sleeping.
	m.now = func() time.Time { return now.Add(2 * time.Minute) }
	_, ok, err := m.Take(ctx, "tok")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryPurge(t *testing.T) {
	m := NewMemory(time.Minute)
	defer m.Close()
	ctx := context.Background()

	now := time.Now()
	m.now = func() time.Time { return now }
	require.NoError(t, m.Put(ctx, "old", "v"))

	m.now = func() time.Time { return now.Add(5 * time.Minute) }
	m.purge()

	m.mu.Lock()
	defer m.mu.Unlock()
	assert.Empty(t, m.entries)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedis(client, time.Minute)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "tok", "user-1"))

	value, ok, err := s.Take(ctx, "tok")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "user-1", value)

	_, ok, err = s.Take(ctx, "tok")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedis(client, time.Minute)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "tok", "user-1"))
	mr.FastForward(2 * time.Minute)

	_, ok, err := s.Take(ctx, "tok")
	require.NoError(t, err)
	assert.False(t, ok)
}
