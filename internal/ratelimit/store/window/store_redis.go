package window

import (
	"context"
	"errors"
	"fmt"
	"time"

	"portico/internal/ratelimit"

	"github.com/redis/go-redis/v9"
)

const windowKeyPrefix = "rl:window:"

// RedisStore implements a fixed window shared across instances: INCR on
// every hit, EXPIRE on the first hit of the window. Fixed windows can admit
// up to 2x the limit across a boundary; acceptable for request throttling.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a redis-backed window store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Allow increments the window counter and checks it against the limit.
func (s *RedisStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (*ratelimit.Result, error) {
	redisKey := windowKeyPrefix + key

	count, err := s.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return nil, fmt.Errorf("increment window counter: %w", err)
	}
	// First hit opens the window.
	if count == 1 {
		if err := s.client.Expire(ctx, redisKey, window).Err(); err != nil {
			return nil, fmt.Errorf("set window expiry: %w", err)
		}
	}

	now := time.Now()
	resetAt := now.Add(window)
	if ttl, err := s.client.TTL(ctx, redisKey).Result(); err == nil && ttl > 0 {
		resetAt = now.Add(ttl)
	}

	if count <= int64(limit) {
		return &ratelimit.Result{
			Allowed:   true,
			Limit:     limit,
			Remaining: limit - int(count),
			ResetAt:   resetAt,
		}, nil
	}

	return &ratelimit.Result{
		Allowed:    false,
		Limit:      limit,
		Remaining:  0,
		ResetAt:    resetAt,
		RetryAfter: retryAfterSeconds(now, resetAt),
	}, nil
}

// Reset clears the window for a key.
func (s *RedisStore) Reset(ctx context.Context, key string) error {
	return s.client.Del(ctx, windowKeyPrefix+key).Err()
}

// Count returns the current window counter for a key.
func (s *RedisStore) Count(ctx context.Context, key string) (int, error) {
	count, err := s.client.Get(ctx, windowKeyPrefix+key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("read window counter: %w", err)
	}
	return int(count), nil
}
