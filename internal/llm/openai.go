package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog"
)

// DefaultOpenAIModel is used when no model is configured
const DefaultOpenAIModel = openai.ChatModelGPT4oMini

// OpenAIProvider implements the LLMProvider interface for OpenAI chat completions
type OpenAIProvider struct {
	client    openai.Client
	model     string
	maxTokens int64
	logger    zerolog.Logger
}

// NewOpenAIProvider creates a new OpenAI provider. baseURL is optional and
// allows OpenAI-compatible gateways.
func NewOpenAIProvider(apiKey, model, baseURL string, logger zerolog.Logger) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}

	if model == "" {
		model = DefaultOpenAIModel
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &OpenAIProvider{
		client:    openai.NewClient(opts...),
		model:     model,
		maxTokens: DefaultMaxTokens,
		logger:    logger,
	}, nil
}

// Ask sends the conversation to OpenAI and returns the response
func (op *OpenAIProvider) Ask(ctx context.Context, prompt Prompt, messages []Message) (*Response, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("no messages to send")
	}

	params := openai.ChatCompletionNewParams{
		Model:               op.model,
		Messages:            toOpenAIMessages(prompt, messages),
		MaxCompletionTokens: openai.Int(op.maxTokens),
	}

	completion, err := op.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai API error: %w", err)
	}

	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("empty response from OpenAI")
	}

	response := &Response{
		Content:      completion.Choices[0].Message.Content,
		InputTokens:  int(completion.Usage.PromptTokens),
		OutputTokens: int(completion.Usage.CompletionTokens),
		CachedTokens: int(completion.Usage.PromptTokensDetails.CachedTokens),
		Model:        completion.Model,
	}

	op.logger.Debug().
		Str("model", completion.Model).
		Int("input_tokens", response.InputTokens).
		Int("output_tokens", response.OutputTokens).
		Str("finish_reason", string(completion.Choices[0].FinishReason)).
		Msg("OpenAI API request completed")

	return response, nil
}

func toOpenAIMessages(prompt Prompt, messages []Message) []openai.ChatCompletionMessageParamUnion {
	params := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages)+1)
	if system := prompt.String(); system != "" {
		params = append(params, openai.SystemMessage(system))
	}
	for _, m := range messages {
		if m.Role == RoleAssistant {
			params = append(params, openai.AssistantMessage(m.Content))
		} else {
			params = append(params, openai.UserMessage(m.Content))
		}
	}
	return params
}

// GetModel returns the model identifier
func (op *OpenAIProvider) GetModel() string {
	return op.model
}

// SupportsPromptCaching returns false; OpenAI caches prefixes automatically
// but exposes no explicit cache control
func (op *OpenAIProvider) SupportsPromptCaching() bool {
	return false
}
