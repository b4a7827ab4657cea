package factory

import (
	"context"
	"testing"

	"github.com/First008/jester/internal/config"
	"github.com/First008/jester/internal/history"
	"github.com/First008/jester/internal/intent"
	"github.com/First008/jester/internal/ratelimit"
	testutil "github.com/First008/jester/internal/testing"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLLMProvider(t *testing.T) {
	logger := testutil.NewTestLogger()

	tests := []struct {
		name      string
		cfg       config.LLMConfig
		wantModel string
		wantErr   bool
	}{
		{"anthropic", config.LLMConfig{Provider: "anthropic", AnthropicKey: "sk-ant-test", Model: "claude-haiku-4-5-20251001"}, "claude-haiku-4-5-20251001", false},
		{"anthropic without key", config.LLMConfig{Provider: "anthropic"}, "", true},
		{"openai", config.LLMConfig{Provider: "openai", OpenAIKey: "sk-test", Model: "gpt-4o-mini"}, "gpt-4o-mini", false},
		{"ollama", config.LLMConfig{Provider: "ollama", Model: "llama3.2"}, "llama3.2", false},
		{"unsupported", config.LLMConfig{Provider: "gemini"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := NewLLMProvider(tt.cfg, logger)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantModel, provider.GetModel())
		})
	}
}

func TestNewLookupProviders(t *testing.T) {
	off := false
	cfg := testutil.NewTestConfig().Lookups
	cfg.Tavily.Enabled = &off

	providers := NewLookupProviders(cfg, testutil.NewTestLogger())

	var cats []intent.Category
	for _, p := range providers {
		cats = append(cats, p.Category())
	}
	assert.Equal(t, []intent.Category{intent.CategoryCrypto, intent.CategoryWeather}, cats)
}

func TestNewLookupProviders_SkipsMissingKeys(t *testing.T) {
	cfg := testutil.NewTestConfig().Lookups
	cfg.OpenWeather.APIKey = ""
	cfg.Tavily.APIKey = ""

	providers := NewLookupProviders(cfg, testutil.NewTestLogger())

	if len(providers) != 1 || providers[0].Category() != intent.CategoryCrypto {
		t.Errorf("Expected only the crypto provider without weather and news keys, got %d providers", len(providers))
	}
}

func TestNewLimiter(t *testing.T) {
	quota := testutil.NewTestConfig().Quota

	limiter, err := NewLimiter(quota, nil)
	require.NoError(t, err)
	assert.IsType(t, &ratelimit.MemoryLimiter{}, limiter)

	quota.Backend = config.BackendRedis
	_, err = NewLimiter(quota, nil)
	assert.Error(t, err, "redis backend without a client")

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	limiter, err = NewLimiter(quota, rdb)
	require.NoError(t, err)
	assert.IsType(t, &ratelimit.RedisLimiter{}, limiter)

	quota.MaxLookups = 0
	_, err = NewLimiter(quota, rdb)
	assert.Error(t, err, "invalid policy")
}

func TestNewHistoryStore(t *testing.T) {
	cfg := testutil.NewTestConfig().History

	store, err := NewHistoryStore(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &history.MemoryStore{}, store)

	cfg.Backend = "sqlite"
	_, err = NewHistoryStore(cfg, nil)
	assert.Error(t, err)
}

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)

	rdb, err := NewRedisClient(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	defer rdb.Close()

	_, err = NewRedisClient(context.Background(), "not a url")
	assert.Error(t, err)

	addr := mr.Addr()
	mr.Close()
	_, err = NewRedisClient(context.Background(), "redis://"+addr)
	assert.Error(t, err, "server is down")
}

func TestNewPipeline(t *testing.T) {
	cfg := testutil.NewTestConfig()

	p, err := NewPipeline(context.Background(), cfg, testutil.NewTestLogger())
	require.NoError(t, err)
	defer p.Close()

	assert.NotNil(t, p.Composer)
	assert.Equal(t, "Jester", p.Persona.Name)
	assert.Equal(t, "claude-sonnet-4-5-20250929", p.Assistant.GetModel())
	assert.Nil(t, p.redis, "memory backends need no redis")
}

func TestNewPipeline_Redis(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := testutil.NewTestConfig()
	cfg.RedisURL = "redis://" + mr.Addr()
	cfg.Quota.Backend = config.BackendRedis
	cfg.History.Backend = config.BackendRedis

	p, err := NewPipeline(context.Background(), cfg, testutil.NewTestLogger())
	require.NoError(t, err)

	assert.NotNil(t, p.redis)
	assert.NoError(t, p.Close())
}

func TestNewPipeline_BadProvider(t *testing.T) {
	cfg := testutil.NewTestConfig()
	cfg.LLM.Provider = "gemini"

	_, err := NewPipeline(context.Background(), cfg, testutil.NewTestLogger())
	assert.Error(t, err)
}
