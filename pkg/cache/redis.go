package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps rendered markup in Redis. Expiry is enforced by Redis.
type RedisStore struct {
	redis *redis.Client
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a store on top of an existing Redis client.
func NewRedisStore(redisClient *redis.Client) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &RedisStore{
		redis: redisClient,
	}
}

// Get retrieves markup by key.
// Returns ErrCacheMiss if the key doesn't exist or has expired.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			CacheMisses.Inc()
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	CacheHits.Inc()
	return data, nil
}

// Put stores markup with the given TTL.
func (s *RedisStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	if err := s.redis.Set(ctx, key, value, ttl).Err(); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	CacheStoredBytes.Add(float64(len(value)))
	return nil
}

// Close closes the underlying Redis client.
func (s *RedisStore) Close() error {
	return s.redis.Close()
}
