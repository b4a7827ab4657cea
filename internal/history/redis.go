package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/First008/jester/internal/llm"
	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces conversation lists in Redis
const DefaultKeyPrefix = "jester:session:"

// RedisStore keeps each conversation as a capped Redis list of JSON messages
type RedisStore struct {
	rdb      redis.Cmdable
	prefix   string
	maxTurns int
	ttl      time.Duration
}

// NewRedisStore creates a Redis-backed store. Conversations idle for longer
// than ttl expire; ttl <= 0 keeps them forever.
func NewRedisStore(rdb redis.Cmdable, prefix string, maxTurns int, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}

	return &RedisStore{
		rdb:      rdb,
		prefix:   prefix,
		maxTurns: maxTurns,
		ttl:      ttl,
	}
}

// Append implements Store
func (s *RedisStore) Append(ctx context.Context, key string, messages ...llm.Message) error {
	if len(messages) == 0 {
		return nil
	}

	values := make([]any, 0, len(messages))
	for _, m := range messages {
		data, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("marshal message: %w", err)
		}
		values = append(values, data)
	}

	k := s.prefix + key
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, k, values...)
		pipe.LTrim(ctx, k, int64(-s.maxTurns), -1)
		if s.ttl > 0 {
			pipe.Expire(ctx, k, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis append %s: %w", k, err)
	}

	return nil
}

// Recent implements Store
func (s *RedisStore) Recent(ctx context.Context, key string, n int) ([]llm.Message, error) {
	if n <= 0 || n > s.maxTurns {
		n = s.maxTurns
	}

	k := s.prefix + key
	raw, err := s.rdb.LRange(ctx, k, int64(-n), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis range %s: %w", k, err)
	}

	messages := make([]llm.Message, 0, len(raw))
	for _, item := range raw {
		var m llm.Message
		if err := json.Unmarshal([]byte(item), &m); err != nil {
			// Skip entries written by an incompatible version
			continue
		}
		messages = append(messages, m)
	}

	return messages, nil
}
