// Package testing provides test utilities, mocks, and fixtures for testing Jester components.
package testing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/First008/jester/internal/assistant"
	"github.com/First008/jester/internal/intent"
	"github.com/First008/jester/internal/llm"
	"github.com/First008/jester/internal/lookup"
)

// MockLLMProvider is a mock implementation of llm.LLMProvider for testing
// without making real API calls.
type MockLLMProvider struct {
	// AskFunc is called when Ask() is invoked. If nil, returns default response.
	AskFunc func(ctx context.Context, prompt llm.Prompt, messages []llm.Message) (*llm.Response, error)

	// Model is the model name to return from GetModel()
	Model string

	// SupportsCaching controls the return value of SupportsPromptCaching()
	SupportsCaching bool

	// CallCount tracks how many times Ask was called
	CallCount int

	// LastPrompt stores the last prompt received
	LastPrompt llm.Prompt

	// LastMessages stores the last conversation received
	LastMessages []llm.Message
}

// Ask implements llm.LLMProvider.Ask
func (m *MockLLMProvider) Ask(ctx context.Context, prompt llm.Prompt, messages []llm.Message) (*llm.Response, error) {
	m.CallCount++
	m.LastPrompt = prompt
	m.LastMessages = append([]llm.Message(nil), messages...)

	if m.AskFunc != nil {
		return m.AskFunc(ctx, prompt, messages)
	}

	return &llm.Response{
		Content:      "Mock response from " + m.GetModel(),
		InputTokens:  100,
		OutputTokens: 50,
		Model:        m.GetModel(),
	}, nil
}

// GetModel implements llm.LLMProvider.GetModel
func (m *MockLLMProvider) GetModel() string {
	if m.Model == "" {
		return "mock-model-v1"
	}
	return m.Model
}

// SupportsPromptCaching implements llm.LLMProvider.SupportsPromptCaching
func (m *MockLLMProvider) SupportsPromptCaching() bool {
	return m.SupportsCaching
}

// ErrorLLMProvider is a mock that always returns errors (for error testing)
type ErrorLLMProvider struct {
	ErrorMessage string
}

// Ask always returns an error
func (e *ErrorLLMProvider) Ask(ctx context.Context, prompt llm.Prompt, messages []llm.Message) (*llm.Response, error) {
	return nil, fmt.Errorf("%s", e.ErrorMessage)
}

// GetModel returns error model name
func (e *ErrorLLMProvider) GetModel() string {
	return "error-model"
}

// SupportsPromptCaching returns false
func (e *ErrorLLMProvider) SupportsPromptCaching() bool {
	return false
}

// MockLookupProvider is a mock lookup.Provider. It is safe for concurrent use.
type MockLookupProvider struct {
	// Cat is the category served
	Cat intent.Category

	// Record is returned by Fetch when FetchFunc is nil
	Record lookup.Record

	// Err is returned by Fetch when FetchFunc is nil and Record is nil
	Err error

	// Delay makes Fetch block until the delay passes or ctx is done
	Delay time.Duration

	// Panic makes Fetch panic
	Panic bool

	// CheckErr is returned by Check
	CheckErr error

	// FetchFunc overrides the canned behaviour
	FetchFunc func(ctx context.Context, det intent.Detection) (lookup.Record, error)

	mu    sync.Mutex
	calls int
	last  intent.Detection
}

// Category implements lookup.Provider.Category
func (m *MockLookupProvider) Category() intent.Category {
	return m.Cat
}

// Check implements lookup.Provider.Check
func (m *MockLookupProvider) Check(intent.Detection) error {
	return m.CheckErr
}

// Fetch implements lookup.Provider.Fetch
func (m *MockLookupProvider) Fetch(ctx context.Context, det intent.Detection) (lookup.Record, error) {
	m.mu.Lock()
	m.calls++
	m.last = det
	m.mu.Unlock()

	if m.Panic {
		panic("mock provider panic")
	}

	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, det)
	}
	if m.Record == nil && m.Err == nil {
		return nil, fmt.Errorf("%w: mock has no record", lookup.ErrProviderUnavailable)
	}
	if m.Record == nil {
		return nil, m.Err
	}
	return m.Record, nil
}

// Calls returns how many times Fetch ran
func (m *MockLookupProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// LastDetection returns the detection passed to the latest Fetch
func (m *MockLookupProvider) LastDetection() intent.Detection {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// MockAssistant is a mock assistant.Assistant that records every request
type MockAssistant struct {
	// InvokeFunc is called when Invoke() is invoked. If nil, replies "mock reply".
	InvokeFunc func(ctx context.Context, req assistant.Request) (*llm.Response, error)

	mu       sync.Mutex
	requests []assistant.Request
}

// Invoke implements assistant.Assistant.Invoke
func (m *MockAssistant) Invoke(ctx context.Context, req assistant.Request) (*llm.Response, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.InvokeFunc != nil {
		return m.InvokeFunc(ctx, req)
	}

	return &llm.Response{Content: "mock reply", Model: "mock-model-v1"}, nil
}

// Requests returns every request received, oldest first
func (m *MockAssistant) Requests() []assistant.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]assistant.Request(nil), m.requests...)
}

// FailingAssistant fails the first n calls with err, then replies normally
func FailingAssistant(n int, err error) *MockAssistant {
	var mu sync.Mutex
	remaining := n

	return &MockAssistant{
		InvokeFunc: func(ctx context.Context, req assistant.Request) (*llm.Response, error) {
			mu.Lock()
			defer mu.Unlock()

			if remaining > 0 {
				remaining--
				return nil, err
			}
			return &llm.Response{Content: "mock reply", Model: "mock-model-v1"}, nil
		},
	}
}

// MockLimiter is a ratelimit.Limiter with a fixed answer
type MockLimiter struct {
	Allowed bool
	Err     error

	mu    sync.Mutex
	calls int
}

// Allow implements ratelimit.Limiter.Allow
func (m *MockLimiter) Allow(ctx context.Context, userID string, category intent.Category) (bool, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.Err != nil {
		return false, m.Err
	}
	return m.Allowed, nil
}

// Calls returns how many quota checks ran
func (m *MockLimiter) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
