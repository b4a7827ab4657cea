// Package llm provides LLM provider abstractions and implementations.
//
// The llm package defines the LLMProvider interface that backs the base
// conversational assistant and implements it for Anthropic Claude, OpenAI
// and local Ollama models.
package llm

import (
	"context"
	"strings"
)

// LLMProvider is the interface that all LLM providers must implement
// This adapter pattern allows easy swapping between different AI providers
type LLMProvider interface {
	// Ask sends the conversation to the LLM and returns its reply.
	// messages are in chronological order and end with the user turn.
	Ask(ctx context.Context, prompt Prompt, messages []Message) (*Response, error)

	// GetModel returns the model identifier being used
	GetModel() string

	// SupportsPromptCaching returns true if the provider caches the persona prompt
	SupportsPromptCaching() bool
}

// Role is the author of a conversation turn
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one conversation turn
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Prompt is the system prompt for a single call.
// Persona is stable across calls and may be cached by the provider;
// Context is the per-call injected block.
type Prompt struct {
	Persona string
	Context string
}

// IsZero reports whether the prompt is empty
func (p Prompt) IsZero() bool {
	return p.Persona == "" && p.Context == ""
}

// String joins persona and context into one system prompt
func (p Prompt) String() string {
	if p.Context == "" {
		return p.Persona
	}
	if p.Persona == "" {
		return p.Context
	}
	return strings.TrimRight(p.Persona, "\n") + "\n\n" + p.Context
}

// Response contains the LLM's response along with usage statistics
type Response struct {
	// Content is the text response from the LLM
	Content string

	// InputTokens is the number of tokens in the input
	InputTokens int

	// OutputTokens is the number of tokens in the output
	OutputTokens int

	// CachedTokens is the number of tokens that were served from cache
	// Only applicable for providers that support prompt caching
	CachedTokens int

	// Model is the specific model that generated this response
	Model string
}
