package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog"
)

// DefaultMaxTokens bounds reply length. Replies are chat-sized.
const DefaultMaxTokens = 1024

// AnthropicProvider implements the LLMProvider interface for Anthropic's Claude API
type AnthropicProvider struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	logger    zerolog.Logger
}

// NewAnthropicProvider creates a new Anthropic provider
func NewAnthropicProvider(apiKey, model string, logger zerolog.Logger) (*AnthropicProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}

	if model == "" {
		model = string(anthropic.ModelClaudeSonnet4_5_20250929) // Default to latest Sonnet 4.5
	}

	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)

	return &AnthropicProvider{
		client:    client,
		model:     model,
		maxTokens: DefaultMaxTokens,
		logger:    logger,
	}, nil
}

// Ask sends the conversation to Claude and returns the response.
// The persona goes out as a cache-controlled system block.
func (ap *AnthropicProvider) Ask(ctx context.Context, prompt Prompt, messages []Message) (*Response, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("no messages to send")
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(ap.model),
		MaxTokens: ap.maxTokens,
		Messages:  toAnthropicMessages(messages),
	}

	if prompt.Persona != "" {
		params.System = append(params.System, anthropic.TextBlockParam{
			Text: prompt.Persona,
			Type: "text",
			// Persona is identical across calls (5 minute TTL)
			CacheControl: anthropic.NewCacheControlEphemeralParam(),
		})
	}
	if prompt.Context != "" {
		params.System = append(params.System, anthropic.TextBlockParam{
			Text: prompt.Context,
			Type: "text",
		})
	}

	// Call the API
	message, err := ap.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic API error: %w", err)
	}

	if len(message.Content) == 0 {
		return nil, fmt.Errorf("empty response from Claude")
	}

	var responseText strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			responseText.WriteString(block.Text)
		}
	}

	response := &Response{
		Content:      responseText.String(),
		InputTokens:  int(message.Usage.InputTokens),
		OutputTokens: int(message.Usage.OutputTokens),
		CachedTokens: int(message.Usage.CacheReadInputTokens),
		Model:        string(message.Model),
	}

	ap.logger.Debug().
		Str("model", string(message.Model)).
		Int("input_tokens", response.InputTokens).
		Int("output_tokens", response.OutputTokens).
		Int("cached_tokens", response.CachedTokens).
		Str("stop_reason", string(message.StopReason)).
		Msg("Claude API request completed")

	return response, nil
}

func toAnthropicMessages(messages []Message) []anthropic.MessageParam {
	params := make([]anthropic.MessageParam, 0, len(messages))
	for _, m := range messages {
		block := anthropic.NewTextBlock(m.Content)
		if m.Role == RoleAssistant {
			params = append(params, anthropic.NewAssistantMessage(block))
		} else {
			params = append(params, anthropic.NewUserMessage(block))
		}
	}
	return params
}

// GetModel returns the model identifier
func (ap *AnthropicProvider) GetModel() string {
	return ap.model
}

// SupportsPromptCaching returns true since Anthropic supports prompt caching
func (ap *AnthropicProvider) SupportsPromptCaching() bool {
	return true
}
