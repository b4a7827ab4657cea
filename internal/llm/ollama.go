package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
	"github.com/rs/zerolog"
)

// OllamaProvider implements the LLMProvider interface for Ollama's local chat API
// This allows running models like llama3.3:70b or qwen2.5 locally
type OllamaProvider struct {
	client *api.Client
	model  string
	logger zerolog.Logger
}

// NewOllamaProvider creates a new Ollama LLM provider
func NewOllamaProvider(baseURL, model string, logger zerolog.Logger) (*OllamaProvider, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434" // Default Ollama URL
	}

	if model == "" {
		model = "llama3.3:70b" // Default to Llama 3.3 70B
	}

	parsedURL, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid ollama URL: %w", err)
	}

	return &OllamaProvider{
		client: api.NewClient(parsedURL, http.DefaultClient),
		model:  model,
		logger: logger,
	}, nil
}

// Ask sends the conversation to Ollama and returns the response
func (op *OllamaProvider) Ask(ctx context.Context, prompt Prompt, messages []Message) (*Response, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("no messages to send")
	}

	chatMessages := make([]api.Message, 0, len(messages)+1)
	if system := prompt.String(); system != "" {
		chatMessages = append(chatMessages, api.Message{Role: "system", Content: system})
	}
	for _, m := range messages {
		chatMessages = append(chatMessages, api.Message{Role: string(m.Role), Content: m.Content})
	}

	stream := false
	req := &api.ChatRequest{
		Model:    op.model,
		Messages: chatMessages,
		Stream:   &stream,
	}

	var content strings.Builder
	var final api.ChatResponse
	err := op.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		if resp.Done {
			final = resp
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ollama API error: %w", err)
	}

	if content.Len() == 0 {
		return nil, fmt.Errorf("empty response from Ollama")
	}

	model := final.Model
	if model == "" {
		model = op.model
	}

	response := &Response{
		Content:      content.String(),
		InputTokens:  final.PromptEvalCount,
		OutputTokens: final.EvalCount,
		CachedTokens: 0, // Ollama doesn't support caching
		Model:        model,
	}

	op.logger.Debug().
		Str("model", model).
		Int("input_tokens", response.InputTokens).
		Int("output_tokens", response.OutputTokens).
		Dur("duration", final.TotalDuration).
		Msg("Ollama LLM request completed")

	return response, nil
}

// GetModel returns the model identifier
func (op *OllamaProvider) GetModel() string {
	return op.model
}

// SupportsPromptCaching returns false since Ollama doesn't support prompt caching
func (op *OllamaProvider) SupportsPromptCaching() bool {
	return false
}
