package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"promptmaker-backend/shared/config"
	"promptmaker-backend/shared/logger"
)

// CacheManager owns the Redis client shared by the rate limiter, the reset
// token store and the prompt read cache.
type CacheManager struct {
	client *redis.Client
}

var (
	// PromptTTL bounds how stale a cached prompt detail can get
	PromptTTL = 5 * time.Minute

	ErrNotInitialized = errors.New("cache manager not initialized")
)

// NewRedisClient builds a client from config without touching the network
func NewRedisClient(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password:     cfg.RedisPassword,
		DB:           cfg.GetRedisDB(),
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})
}

// NewCacheManager wraps client. Connectivity is checked with TestConnection.
func NewCacheManager(client *redis.Client) *CacheManager {
	return &CacheManager{client: client}
}

// Client returns the underlying Redis client
func (cm *CacheManager) Client() *redis.Client {
	return cm.client
}

// GeneratePromptKey generates a cache key for one prompt
func GeneratePromptKey(promptID string) string {
	return fmt.Sprintf("prompt:%s", promptID)
}

// SetJSON stores value under key as JSON with the given TTL
func (cm *CacheManager) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if cm == nil || cm.client == nil {
		return ErrNotInitialized
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache data: %w", err)
	}

	if err := cm.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}
	return nil
}

// GetJSON loads key into dest. It reports false on a miss or any error.
func (cm *CacheManager) GetJSON(ctx context.Context, key string, dest interface{}) bool {
	if cm == nil || cm.client == nil {
		return false
	}

	raw, err := cm.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Log.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		logger.Log.Warn("failed to unmarshal cache data", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// InvalidatePrompt drops the cached copy of one prompt
func (cm *CacheManager) InvalidatePrompt(ctx context.Context, promptID string) error {
	if cm == nil || cm.client == nil {
		return ErrNotInitialized
	}

	key := GeneratePromptKey(promptID)
	if err := cm.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete cache key %s: %w", key, err)
	}
	return nil
}

// InvalidateAllPrompts drops every cached prompt
func (cm *CacheManager) InvalidateAllPrompts(ctx context.Context) error {
	if cm == nil || cm.client == nil {
		return ErrNotInitialized
	}
	return cm.invalidateByPattern(ctx, "prompt:*")
}

// invalidateByPattern invalidates cache entries matching a pattern
func (cm *CacheManager) invalidateByPattern(ctx context.Context, pattern string) error {
	iter := cm.client.Scan(ctx, 0, pattern, 0).Iterator()
	var keys []string

	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}

	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan keys: %w", err)
	}

	if len(keys) > 0 {
		if err := cm.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("failed to delete keys: %w", err)
		}
		logger.Log.Debug("cache invalidated", zap.Int("keys", len(keys)), zap.String("pattern", pattern))
	}

	return nil
}

// TestConnection pings Redis
func (cm *CacheManager) TestConnection(ctx context.Context) error {
	if cm == nil || cm.client == nil {
		return ErrNotInitialized
	}
	if err := cm.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return nil
}

// Close closes the cache manager connection
func (cm *CacheManager) Close() error {
	if cm != nil && cm.client != nil {
		return cm.client.Close()
	}
	return nil
}
