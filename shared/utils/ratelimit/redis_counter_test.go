package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisCounter(t *testing.T) (*RedisCounter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisCounter(client), mr
}

func TestRedisCounter_IncrementSetsExpiry(t *testing.T) {
	counter, mr := newRedisCounter(t)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		n, err := counter.Increment(ctx, "rate_limit:10.0.0.1", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}

	assert.Equal(t, time.Minute, mr.TTL("rate_limit:10.0.0.1"))
	got, err := mr.Get("rate_limit:10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, "3", got)
}

func TestRedisCounter_Get(t *testing.T) {
	counter, mr := newRedisCounter(t)
	ctx := context.Background()

	n, ttl, err := counter.Get(ctx, "rate_limit:missing")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, ttl)

	_, err = counter.Increment(ctx, "rate_limit:ip", time.Minute)
	require.NoError(t, err)
	mr.FastForward(15 * time.Second)

	n, ttl, err = counter.Get(ctx, "rate_limit:ip")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 45*time.Second, ttl)
}

func TestRedisCounter_WindowExpires(t *testing.T) {
	counter, mr := newRedisCounter(t)
	ctx := context.Background()

	_, err := counter.Increment(ctx, "rate_limit:ip", time.Minute)
	require.NoError(t, err)
	mr.FastForward(time.Minute)

	assert.False(t, mr.Exists("rate_limit:ip"))
	n, _, err := counter.Get(ctx, "rate_limit:ip")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestLimiter_WithRedisCounter(t *testing.T) {
	counter, mr := newRedisCounter(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l := NewLimiter(counter, Config{Max: 2, Window: time.Minute})
	l.now = func() time.Time { return now }
	ctx := context.Background()

	first := l.Allow(ctx, "203.0.113.9")
	require.True(t, first.Allowed)
	assert.Equal(t, 1, first.Remaining)
	assert.Equal(t, now.Add(time.Minute), first.ResetAt)

	require.True(t, l.Allow(ctx, "203.0.113.9").Allowed)

	mr.FastForward(20 * time.Second)
	third := l.Allow(ctx, "203.0.113.9")
	assert.False(t, third.Allowed)
	assert.False(t, third.Degraded())
	assert.Equal(t, time.Minute, third.RetryAfter)
	assert.Equal(t, now.Add(40*time.Second), third.ResetAt)

	got, err := mr.Get(KeyPrefix + "203.0.113.9")
	require.NoError(t, err)
	assert.Equal(t, "2", got, "rejected requests are not counted")

	mr.FastForward(40 * time.Second)
	assert.True(t, l.Allow(ctx, "203.0.113.9").Allowed)
}
