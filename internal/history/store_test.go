package history

import (
	"context"
	"testing"
	"time"

	"github.com/First008/jester/internal/llm"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func turns(n int) []llm.Message {
	out := make([]llm.Message, n)
	for i := range out {
		role := llm.RoleUser
		if i%2 == 1 {
			role = llm.RoleAssistant
		}
		out[i] = llm.Message{Role: role, Content: string(rune('a' + i))}
	}
	return out
}

// storeContract runs the behaviour every Store must have
func storeContract(t *testing.T, newStore func(maxTurns int) Store) {
	ctx := context.Background()

	t.Run("empty conversation", func(t *testing.T) {
		s := newStore(10)
		got, err := s.Recent(ctx, "nobody", 5)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("keeps order", func(t *testing.T) {
		s := newStore(10)
		require.NoError(t, s.Append(ctx, "c1", turns(4)...))

		got, err := s.Recent(ctx, "c1", 0)
		require.NoError(t, err)
		assert.Equal(t, turns(4), got)
	})

	t.Run("recent n", func(t *testing.T) {
		s := newStore(10)
		require.NoError(t, s.Append(ctx, "c1", turns(6)...))

		got, err := s.Recent(ctx, "c1", 2)
		require.NoError(t, err)
		assert.Equal(t, turns(6)[4:], got)
	})

	t.Run("caps at max turns", func(t *testing.T) {
		s := newStore(4)
		require.NoError(t, s.Append(ctx, "c1", turns(3)...))
		require.NoError(t, s.Append(ctx, "c1", turns(6)[3:]...))

		got, err := s.Recent(ctx, "c1", 0)
		require.NoError(t, err)
		assert.Equal(t, turns(6)[2:], got)
	})

	t.Run("conversations are separate", func(t *testing.T) {
		s := newStore(10)
		require.NoError(t, s.Append(ctx, "c1", llm.Message{Role: llm.RoleUser, Content: "one"}))
		require.NoError(t, s.Append(ctx, "c2", llm.Message{Role: llm.RoleUser, Content: "two"}))

		got, err := s.Recent(ctx, "c2", 0)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "two", got[0].Content)
	})
}

func TestMemoryStore(t *testing.T) {
	storeContract(t, func(maxTurns int) Store {
		return NewMemoryStore(maxTurns)
	})
}

func TestMemoryStore_RecentIsACopy(t *testing.T) {
	s := NewMemoryStore(10)
	ctx := context.Background()
	require.NoError(t, s.Append(ctx, "c1", llm.Message{Role: llm.RoleUser, Content: "hi"}))

	got, _ := s.Recent(ctx, "c1", 0)
	got[0].Content = "changed"

	again, _ := s.Recent(ctx, "c1", 0)
	assert.Equal(t, "hi", again[0].Content)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	storeContract(t, func(maxTurns int) Store {
		mr.FlushAll()
		return NewRedisStore(rdb, "", maxTurns, time.Hour)
	})
}

func TestRedisStore_TTLAndBadEntries(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	s := NewRedisStore(rdb, "test:", 10, 30*time.Minute)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, "c1", llm.Message{Role: llm.RoleUser, Content: "hi"}))
	assert.Equal(t, 30*time.Minute, mr.TTL("test:c1"))

	_, err := mr.RPush("test:c1", "not json")
	require.NoError(t, err)

	got, err := s.Recent(ctx, "c1", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "hi", got[0].Content)

	mr.FastForward(31 * time.Minute)
	got, err = s.Recent(ctx, "c1", 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}
