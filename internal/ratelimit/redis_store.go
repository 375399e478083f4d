// README: Redis-backed counter store for multi-instance deployments.
package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisStore struct {
	redis *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{redis: client}
}

func (s *RedisStore) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	pipe := s.redis.Pipeline()
	incr := pipe.Incr(ctx, key)
	// NX so repeated hits in the same window never push the expiry out.
	pipe.ExpireNX(ctx, key, ttl+time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}
