package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/First008/jester/internal/intent"
	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces quota counters in Redis
const DefaultKeyPrefix = "jester:quota:"

// RedisLimiter keeps counters in Redis so quotas hold across replicas.
// Each attempt is a MULTI/EXEC of INCR and EXPIREAT on the window key.
type RedisLimiter struct {
	rdb      redis.Cmdable
	prefix   string
	policies Policies
	now      func() time.Time
}

// NewRedisLimiter creates a Redis-backed limiter
func NewRedisLimiter(rdb redis.Cmdable, prefix string, policies Policies) *RedisLimiter {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}

	return &RedisLimiter{
		rdb:      rdb,
		prefix:   prefix,
		policies: policies,
		now:      time.Now,
	}
}

// Allow implements Limiter
func (l *RedisLimiter) Allow(ctx context.Context, userID string, category intent.Category) (bool, error) {
	policy := l.policies.For(category)
	start := policy.windowStart(l.now())
	k := l.prefix + key(userID, category, start)

	var incr *redis.IntCmd
	_, err := l.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		pipe.ExpireAt(ctx, k, start.Add(policy.Window))
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("redis quota %s: %w", k, err)
	}

	return incr.Val() <= int64(policy.Max), nil
}
