package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func TestNewAnthropicProvider_Success(t *testing.T) {
	provider, err := NewAnthropicProvider("test-key-123", "", testLogger())
	if err != nil {
		t.Fatalf("NewAnthropicProvider failed: %v", err)
	}

	if provider.GetModel() == "" {
		t.Error("Expected non-empty default model")
	}

	if !provider.SupportsPromptCaching() {
		t.Error("Anthropic provider should support prompt caching")
	}
}

func TestNewAnthropicProvider_MissingKey(t *testing.T) {
	_, err := NewAnthropicProvider("", "", testLogger())
	if err == nil {
		t.Fatal("Expected error for missing API key, got nil")
	}
}

func TestNewOpenAIProvider(t *testing.T) {
	if _, err := NewOpenAIProvider("", "", "", testLogger()); err == nil {
		t.Fatal("Expected error for missing API key, got nil")
	}

	provider, err := NewOpenAIProvider("sk-test", "", "", testLogger())
	if err != nil {
		t.Fatalf("NewOpenAIProvider failed: %v", err)
	}

	if provider.GetModel() != DefaultOpenAIModel {
		t.Errorf("Expected default model %s, got %s", DefaultOpenAIModel, provider.GetModel())
	}

	if provider.SupportsPromptCaching() {
		t.Error("OpenAI provider should not report explicit prompt caching")
	}
}

func TestGetModel_Custom(t *testing.T) {
	tests := []struct {
		name  string
		model string
		build func(model string) (LLMProvider, error)
	}{
		{
			name:  "anthropic",
			model: "claude-3-5-haiku-20241022",
			build: func(m string) (LLMProvider, error) { return NewAnthropicProvider("key", m, testLogger()) },
		},
		{
			name:  "openai",
			model: "gpt-4o",
			build: func(m string) (LLMProvider, error) { return NewOpenAIProvider("key", m, "", testLogger()) },
		},
		{
			name:  "ollama",
			model: "qwen2.5:14b",
			build: func(m string) (LLMProvider, error) { return NewOllamaProvider("", m, testLogger()) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := tt.build(tt.model)
			if err != nil {
				t.Fatalf("constructor failed: %v", err)
			}
			if provider.GetModel() != tt.model {
				t.Errorf("Expected model %s, got %s", tt.model, provider.GetModel())
			}
		})
	}
}

func TestPrompt_String(t *testing.T) {
	tests := []struct {
		name   string
		prompt Prompt
		want   string
	}{
		{"empty", Prompt{}, ""},
		{"persona only", Prompt{Persona: "You are funny."}, "You are funny."},
		{"context only", Prompt{Context: "BTC is up."}, "BTC is up."},
		{"both", Prompt{Persona: "You are funny.\n", Context: "BTC is up."}, "You are funny.\n\nBTC is up."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.prompt.String(); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}

	if !(Prompt{}).IsZero() {
		t.Error("Empty prompt should be zero")
	}
}

func TestToAnthropicMessages_Roles(t *testing.T) {
	params := toAnthropicMessages([]Message{
		{Role: RoleUser, Content: "hi"},
		{Role: RoleAssistant, Content: "hello"},
		{Role: RoleUser, Content: "btc?"},
	})

	if len(params) != 3 {
		t.Fatalf("Expected 3 messages, got %d", len(params))
	}

	if params[1].Role != "assistant" {
		t.Errorf("Expected second message from assistant, got %s", params[1].Role)
	}

	if params[2].Role != "user" {
		t.Errorf("Expected last message from user, got %s", params[2].Role)
	}
}

func TestToOpenAIMessages_SystemFirst(t *testing.T) {
	params := toOpenAIMessages(Prompt{Persona: "persona"}, []Message{{Role: RoleUser, Content: "hi"}})
	if len(params) != 2 {
		t.Fatalf("Expected system + user, got %d messages", len(params))
	}

	if params[0].OfSystem == nil {
		t.Error("Expected first message to be the system prompt")
	}

	if len(toOpenAIMessages(Prompt{}, []Message{{Role: RoleUser, Content: "hi"}})) != 1 {
		t.Error("Empty prompt should not add a system message")
	}
}

func TestOllamaProvider_Ask(t *testing.T) {
	var received struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/x-ndjson")
		io.WriteString(w, `{"model":"llama3","message":{"role":"assistant","content":"BTC is vibing"},"done":true,"prompt_eval_count":12,"eval_count":5}`+"\n")
	}))
	defer server.Close()

	provider, err := NewOllamaProvider(server.URL, "llama3", testLogger())
	if err != nil {
		t.Fatalf("NewOllamaProvider failed: %v", err)
	}

	resp, err := provider.Ask(context.Background(), Prompt{Persona: "persona", Context: "ctx"}, []Message{{Role: RoleUser, Content: "btc?"}})
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}

	if resp.Content != "BTC is vibing" {
		t.Errorf("Expected content 'BTC is vibing', got '%s'", resp.Content)
	}

	if resp.InputTokens != 12 || resp.OutputTokens != 5 {
		t.Errorf("Expected 12/5 tokens, got %d/%d", resp.InputTokens, resp.OutputTokens)
	}

	if len(received.Messages) != 2 || received.Messages[0].Role != "system" {
		t.Fatalf("Expected system + user messages, got %+v", received.Messages)
	}

	if !strings.Contains(received.Messages[0].Content, "ctx") {
		t.Error("System message should include the injected context")
	}
}

func TestAsk_NoMessages(t *testing.T) {
	provider, _ := NewOllamaProvider("", "", testLogger())
	if _, err := provider.Ask(context.Background(), Prompt{}, nil); err == nil {
		t.Error("Expected error for empty conversation")
	}
}
