// Package ratelimit counts requests per key inside a fixed window. The
// counter lives behind the Counter interface so a shared store can back it.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces rate limit counters in the backing store.
const KeyPrefix = "rate_limit:"

// Counter is the storage capability the limiter needs.
type Counter interface {
	// Get returns the current count for key and the time left in its window.
	// Both are zero when no window is open.
	Get(ctx context.Context, key string) (count int64, ttl time.Duration, err error)
	// Increment bumps the counter and (re)applies the window expiry atomically,
	// returning the new count.
	Increment(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RedisCounter stores counters in Redis. INCR and EXPIRE go out in one
// MULTI/EXEC so concurrent requests always leave an expiry on the key.
type RedisCounter struct {
	client redis.UniversalClient
}

// NewRedisCounter wraps an existing Redis client
func NewRedisCounter(client redis.UniversalClient) *RedisCounter {
	return &RedisCounter{client: client}
}

func (c *RedisCounter) Get(ctx context.Context, key string) (int64, time.Duration, error) {
	var (
		get  *redis.StringCmd
		pttl *redis.DurationCmd
	)
	_, err := c.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		get = pipe.Get(ctx, key)
		pttl = pipe.PTTL(ctx, key)
		return nil
	})
	if errors.Is(err, redis.Nil) {
		return 0, 0, nil
	}
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read counter %s: %w", key, err)
	}

	n, err := get.Int64()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read counter %s: %w", key, err)
	}
	// -1 (no expiry) and -2 (gone) come back as negative durations
	ttl := pttl.Val()
	if ttl < 0 {
		ttl = 0
	}
	return n, ttl, nil
}

func (c *RedisCounter) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	var incr *redis.IntCmd
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, window)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to increment counter %s: %w", key, err)
	}
	return incr.Val(), nil
}

type memoryEntry struct {
	count   int64
	resetAt time.Time
}

// MemoryCounter is an in-process Counter for tests and single-node setups.
type MemoryCounter struct {
	entries map[string]*memoryEntry
	mutex   sync.Mutex
	now     func() time.Time
}

// NewMemoryCounter creates an empty in-process counter
func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{
		entries: make(map[string]*memoryEntry),
		now:     time.Now,
	}
}

func (c *MemoryCounter) Get(_ context.Context, key string) (int64, time.Duration, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return 0, 0, nil
	}
	now := c.now()
	if !now.Before(entry.resetAt) {
		delete(c.entries, key)
		return 0, 0, nil
	}
	return entry.count, entry.resetAt.Sub(now), nil
}

func (c *MemoryCounter) Increment(_ context.Context, key string, window time.Duration) (int64, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := c.now()
	entry, ok := c.entries[key]
	if !ok || !now.Before(entry.resetAt) {
		entry = &memoryEntry{}
		c.entries[key] = entry
	}
	entry.count++
	entry.resetAt = now.Add(window)
	return entry.count, nil
}
