// Package factory provides factory functions for creating providers and dependencies.
//
// The factory package centralizes construction from config, so the HTTP and
// MCP entry points wire the same pipeline the same way.
package factory

import (
	"context"
	"fmt"
	"time"

	"github.com/First008/jester/internal/config"
	"github.com/First008/jester/internal/history"
	"github.com/First008/jester/internal/llm"
	"github.com/First008/jester/internal/lookup"
	"github.com/First008/jester/internal/ratelimit"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// NewLLMProvider creates the base assistant's model provider
func NewLLMProvider(cfg config.LLMConfig, logger zerolog.Logger) (llm.LLMProvider, error) {
	var (
		provider llm.LLMProvider
		err      error
	)

	switch cfg.Provider {
	case "anthropic":
		provider, err = llm.NewAnthropicProvider(cfg.AnthropicKey, cfg.Model, logger)
	case "openai":
		provider, err = llm.NewOpenAIProvider(cfg.OpenAIKey, cfg.Model, cfg.OpenAIBaseURL, logger)
	case "ollama":
		provider, err = llm.NewOllamaProvider(cfg.OllamaURL, cfg.Model, logger)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s (supported: anthropic, openai, ollama)", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s provider: %w", cfg.Provider, err)
	}

	logger.Info().
		Str("provider", cfg.Provider).
		Str("model", provider.GetModel()).
		Msg("Created LLM provider")

	return provider, nil
}

// NewLookupProviders creates the enabled live-data providers. Providers that
// need a key and have none are left out, so their category never charges quota.
func NewLookupProviders(cfg config.LookupsConfig, logger zerolog.Logger) []lookup.Provider {
	var providers []lookup.Provider

	if cfg.CoinGecko.IsEnabled() {
		providers = append(providers, lookup.NewCoinGeckoProvider(cfg.CoinGecko.BaseURL, cfg.CoinGecko.APIKey, cfg.Timeout, logger))
	}
	if cfg.OpenWeather.IsEnabled() {
		if cfg.OpenWeather.APIKey == "" {
			logger.Warn().Msg("OpenWeather API key not set, weather lookups disabled")
		} else {
			providers = append(providers, lookup.NewOpenWeatherProvider(cfg.OpenWeather.BaseURL, cfg.OpenWeather.APIKey, cfg.Timeout, logger))
		}
	}
	if cfg.Tavily.IsEnabled() {
		if cfg.Tavily.APIKey == "" {
			logger.Warn().Msg("Tavily API key not set, news lookups disabled")
		} else {
			providers = append(providers, lookup.NewTavilyProvider(cfg.Tavily.BaseURL, cfg.Tavily.APIKey, cfg.Tavily.MaxResults, cfg.Timeout, logger))
		}
	}

	names := make([]string, len(providers))
	for i, p := range providers {
		names[i] = string(p.Category())
	}
	logger.Info().Strs("categories", names).Msg("Created lookup providers")

	return providers
}

// NewRedisClient connects to Redis and checks the connection
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return rdb, nil
}

// NewLimiter creates the quota limiter for the configured backend. rdb is
// required for the redis backend.
func NewLimiter(cfg config.QuotaConfig, rdb redis.Cmdable) (ratelimit.Limiter, error) {
	policies := cfg.Policies()
	if err := policies.Validate(); err != nil {
		return nil, fmt.Errorf("quota: %w", err)
	}

	switch cfg.Backend {
	case config.BackendMemory, "":
		return ratelimit.NewMemoryLimiter(policies), nil
	case config.BackendRedis:
		if rdb == nil {
			return nil, fmt.Errorf("quota: redis backend needs a redis client")
		}
		return ratelimit.NewRedisLimiter(rdb, "", policies), nil
	default:
		return nil, fmt.Errorf("unsupported quota backend: %s", cfg.Backend)
	}
}

// NewHistoryStore creates the conversation store for the configured backend.
// rdb is required for the redis backend.
func NewHistoryStore(cfg config.HistoryConfig, rdb redis.Cmdable) (history.Store, error) {
	switch cfg.Backend {
	case config.BackendMemory, "":
		return history.NewMemoryStore(cfg.MaxTurns), nil
	case config.BackendRedis:
		if rdb == nil {
			return nil, fmt.Errorf("history: redis backend needs a redis client")
		}
		return history.NewRedisStore(rdb, "", cfg.MaxTurns, cfg.TTL), nil
	default:
		return nil, fmt.Errorf("unsupported history backend: %s", cfg.Backend)
	}
}
