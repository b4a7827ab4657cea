// Package history keeps recent conversation turns for the base assistant.
package history

import (
	"context"
	"sync"

	"github.com/First008/jester/internal/llm"
)

// DefaultMaxTurns bounds how many messages are kept per conversation
const DefaultMaxTurns = 20

// Store persists conversation turns by key
type Store interface {
	// Append adds messages to the end of the conversation
	Append(ctx context.Context, key string, messages ...llm.Message) error

	// Recent returns up to n of the latest messages, oldest first
	Recent(ctx context.Context, key string, n int) ([]llm.Message, error)
}

// MemoryStore keeps conversations in process memory
type MemoryStore struct {
	mu       sync.RWMutex
	maxTurns int
	convs    map[string][]llm.Message
}

// NewMemoryStore creates an in-memory store keeping at most maxTurns
// messages per conversation
func NewMemoryStore(maxTurns int) *MemoryStore {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}

	return &MemoryStore{
		maxTurns: maxTurns,
		convs:    make(map[string][]llm.Message),
	}
}

// Append implements Store
func (s *MemoryStore) Append(ctx context.Context, key string, messages ...llm.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := append(s.convs[key], messages...)
	if len(conv) > s.maxTurns {
		conv = append([]llm.Message(nil), conv[len(conv)-s.maxTurns:]...)
	}
	s.convs[key] = conv

	return nil
}

// Recent implements Store
func (s *MemoryStore) Recent(ctx context.Context, key string, n int) ([]llm.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv := s.convs[key]
	if n > 0 && len(conv) > n {
		conv = conv[len(conv)-n:]
	}

	out := make([]llm.Message, len(conv))
	copy(out, conv)
	return out, nil
}
