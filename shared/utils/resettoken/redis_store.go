package resettoken

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix = "reset_token:"

	// expired entries linger this long so Get and GetAll can still report them
	redisRetention = 24 * time.Hour
)

var markUsedScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
	redis.call("HSET", KEYS[1], "used", "1")
	return 1
end
return 0
`)

// RedisStore keeps tokens in Redis hashes so every instance sees the same set.
type RedisStore struct {
	client redis.UniversalClient
	now    func() time.Time
}

// NewRedisStore wraps an existing Redis client
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

func redisKey(token string) string {
	return redisKeyPrefix + token
}

func (s *RedisStore) Save(ctx context.Context, email, token string, expiresAt time.Time) error {
	key := redisKey(token)
	ttl := expiresAt.Sub(s.now()) + redisRetention
	if ttl <= 0 {
		ttl = redisRetention
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key,
			"email", email,
			"expires", strconv.FormatInt(expiresAt.UnixNano(), 10),
			"used", "0",
		)
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, token string) (*ResetToken, error) {
	fields, err := s.client.HGetAll(ctx, redisKey(token)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load reset token: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return decodeToken(token, fields)
}

func (s *RedisStore) IsValid(ctx context.Context, token string) (bool, error) {
	entry, err := s.Get(ctx, token)
	if err != nil || entry == nil {
		return false, err
	}
	return entry.IsValidAt(s.now()), nil
}

func (s *RedisStore) MarkAsUsed(ctx context.Context, token string) (bool, error) {
	n, err := markUsedScript.Run(ctx, s.client, []string{redisKey(token)}).Int()
	if err != nil {
		return false, fmt.Errorf("failed to mark reset token as used: %w", err)
	}
	return n == 1, nil
}

func (s *RedisStore) Cleanup(ctx context.Context) (int, error) {
	now := s.now()
	removed := 0

	iter := s.client.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		entry, err := s.Get(ctx, key[len(redisKeyPrefix):])
		if err != nil {
			return removed, err
		}
		if entry == nil || entry.IsValidAt(now) {
			continue
		}
		if err := s.client.Del(ctx, key).Err(); err != nil {
			return removed, fmt.Errorf("failed to delete key %s: %w", key, err)
		}
		removed++
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("failed to scan keys: %w", err)
	}
	return removed, nil
}

func (s *RedisStore) GetAll(ctx context.Context) ([]ResetToken, error) {
	var all []ResetToken

	iter := s.client.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		entry, err := s.Get(ctx, iter.Val()[len(redisKeyPrefix):])
		if err != nil {
			return nil, err
		}
		if entry != nil {
			all = append(all, *entry)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan keys: %w", err)
	}
	return all, nil
}

func decodeToken(token string, fields map[string]string) (*ResetToken, error) {
	nanos, err := strconv.ParseInt(fields["expires"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt reset token %q: %w", token, err)
	}
	return &ResetToken{
		Email:   fields["email"],
		Token:   token,
		Expires: time.Unix(0, nanos),
		Used:    fields["used"] == "1",
	}, nil
}
