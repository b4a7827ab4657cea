// Package assistant is the base conversational assistant.
//
// An Assistant turns one user message into one reply using an LLM provider,
// the persona prompt and recent conversation history. The system prompt of a
// call is always passed in the Request; nothing about one call's prompt is
// visible to another.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/First008/jester/internal/history"
	"github.com/First008/jester/internal/llm"
	"github.com/First008/jester/internal/persona"
	"github.com/First008/jester/pkg/telemetry"
	"github.com/rs/zerolog"
)

// DefaultHistoryTurns is how many prior messages are sent with each call
const DefaultHistoryTurns = 10

// ErrOverBudget is returned once the daily LLM budget is spent
var ErrOverBudget = errors.New("daily LLM budget spent")

// Request is one assistant invocation
type Request struct {
	UserID         string
	Message        string
	Platform       string
	ConversationID string
	SafeMode       bool

	// Annotation is appended to Message when sent but not kept in history
	Annotation string

	// Prompt overrides the persona default when non-zero
	Prompt llm.Prompt
}

// Text returns the message as sent to the model
func (r Request) Text() string {
	if r.Annotation == "" {
		return r.Message
	}
	return strings.TrimRight(r.Message, "\n") + "\n\n" + r.Annotation
}

// HistoryKey identifies the conversation. Requests without a conversation id
// share one conversation per platform and user.
func (r Request) HistoryKey() string {
	if r.ConversationID != "" {
		return r.ConversationID
	}
	return r.Platform + ":" + r.UserID
}

// Assistant produces replies
type Assistant interface {
	Invoke(ctx context.Context, req Request) (*llm.Response, error)
}

// LLMAssistant is the Assistant backed by an LLM provider
type LLMAssistant struct {
	provider     llm.LLMProvider
	persona      *persona.Persona
	history      history.Store
	historyTurns int
	costTracker  *telemetry.CostTracker
	logger       zerolog.Logger
}

// NewLLMAssistant creates an assistant. store and costTracker may be nil;
// historyTurns <= 0 uses DefaultHistoryTurns.
func NewLLMAssistant(provider llm.LLMProvider, p *persona.Persona, store history.Store, historyTurns int, costTracker *telemetry.CostTracker, logger zerolog.Logger) *LLMAssistant {
	if historyTurns <= 0 {
		historyTurns = DefaultHistoryTurns
	}

	return &LLMAssistant{
		provider:     provider,
		persona:      p,
		history:      store,
		historyTurns: historyTurns,
		costTracker:  costTracker,
		logger:       logger,
	}
}

// Invoke sends the request to the model and records the exchange
func (a *LLMAssistant) Invoke(ctx context.Context, req Request) (*llm.Response, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, fmt.Errorf("message is required")
	}

	if a.costTracker != nil && a.costTracker.OverBudget() {
		return nil, ErrOverBudget
	}

	prompt := req.Prompt
	if prompt.IsZero() {
		prompt = llm.Prompt{Persona: a.persona.SystemPrompt(req.SafeMode, req.Platform)}
	}

	key := req.HistoryKey()
	messages := a.loadHistory(ctx, key)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: req.Text()})

	start := time.Now()
	response, err := a.provider.Ask(ctx, prompt, messages)
	telemetry.AssistantLatency.WithLabelValues(a.provider.GetModel()).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("LLM request failed: %w", err)
	}

	if strings.TrimSpace(response.Content) == "" {
		return nil, fmt.Errorf("LLM returned an empty reply")
	}

	a.saveHistory(ctx, key, req.Message, response.Content)
	a.trackCost(response)

	return response, nil
}

// GetModel returns the LLM model being used
func (a *LLMAssistant) GetModel() string {
	return a.provider.GetModel()
}

func (a *LLMAssistant) loadHistory(ctx context.Context, key string) []llm.Message {
	if a.history == nil {
		return nil
	}

	messages, err := a.history.Recent(ctx, key, a.historyTurns)
	if err != nil {
		// Replying without history beats not replying
		a.logger.Warn().Err(err).Str("conversation", key).Msg("Failed to load history")
		return nil
	}
	return messages
}

func (a *LLMAssistant) saveHistory(ctx context.Context, key, message, reply string) {
	if a.history == nil {
		return
	}

	err := a.history.Append(ctx, key,
		llm.Message{Role: llm.RoleUser, Content: message},
		llm.Message{Role: llm.RoleAssistant, Content: reply},
	)
	if err != nil {
		a.logger.Warn().Err(err).Str("conversation", key).Msg("Failed to save history")
	}
}

func (a *LLMAssistant) trackCost(response *llm.Response) {
	if a.costTracker == nil {
		return
	}

	cost, err := a.costTracker.RecordRequest(
		response.Model,
		response.InputTokens,
		response.OutputTokens,
		response.CachedTokens,
	)
	if err != nil {
		// Don't fail the request if cost tracking fails, just log it
		a.logger.Error().Err(err).Msg("Cost tracking failed")
		return
	}

	a.logger.Info().
		Str("model", response.Model).
		Int("input_tokens", response.InputTokens).
		Int("output_tokens", response.OutputTokens).
		Int("cached_tokens", response.CachedTokens).
		Float64("cost_usd", cost).
		Msg("Reply generated")
}
