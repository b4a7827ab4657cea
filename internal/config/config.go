// Package config loads the Jester service configuration.
package config

import (
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/First008/jester/internal/intent"
	"github.com/First008/jester/internal/ratelimit"
	"gopkg.in/yaml.v3"
)

// Backends for quota counters and conversation history
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config holds the configuration for one Jester instance
type Config struct {
	Port       int           `yaml:"port"`
	LLM        LLMConfig     `yaml:"llm"`
	Persona    PersonaConfig `yaml:"persona"`
	Lookups    LookupsConfig `yaml:"lookups"`
	Quota      QuotaConfig   `yaml:"quota"`
	History    HistoryConfig `yaml:"history"`
	RedisURL   string        `yaml:"redis_url"`
	CostLimits CostLimits    `yaml:"cost_limits"`
}

// LLMConfig selects the base assistant's model
type LLMConfig struct {
	Provider      string `yaml:"provider"` // "anthropic", "openai" or "ollama"
	Model         string `yaml:"model"`
	AnthropicKey  string `yaml:"anthropic_key"`
	OpenAIKey     string `yaml:"openai_key"`
	OpenAIBaseURL string `yaml:"openai_base_url"`
	OllamaURL     string `yaml:"ollama_url"`
}

// PersonaConfig overrides the built-in persona
type PersonaConfig struct {
	Name      string `yaml:"name"`
	Voice     string `yaml:"voice"`
	SafeVoice string `yaml:"safe_voice"`
}

// LookupsConfig configures the live-data providers
type LookupsConfig struct {
	Timeout     time.Duration  `yaml:"timeout"`
	DefaultCoin string         `yaml:"default_coin"`
	DefaultCity string         `yaml:"default_city"`
	CoinGecko   ProviderConfig `yaml:"coingecko"`
	OpenWeather ProviderConfig `yaml:"openweather"`
	Tavily      ProviderConfig `yaml:"tavily"`
}

// ProviderConfig is the endpoint and credentials of one provider
type ProviderConfig struct {
	Enabled    *bool  `yaml:"enabled"`
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
	MaxResults int    `yaml:"max_results"`
}

// IsEnabled reports whether the provider should be wired. Providers are on
// unless disabled explicitly.
func (p ProviderConfig) IsEnabled() bool {
	return p.Enabled == nil || *p.Enabled
}

// QuotaConfig is the per (user, category) lookup quota
type QuotaConfig struct {
	Backend     string                 `yaml:"backend"`
	MaxLookups  int                    `yaml:"max_lookups"`
	Window      time.Duration          `yaml:"window"`
	PerCategory map[string]QuotaPolicy `yaml:"per_category"`
}

// QuotaPolicy overrides the quota for one category
type QuotaPolicy struct {
	MaxLookups int           `yaml:"max_lookups"`
	Window     time.Duration `yaml:"window"`
}

// Policies converts the quota config for the limiter
func (q QuotaConfig) Policies() ratelimit.Policies {
	ps := ratelimit.Policies{
		Default: ratelimit.Policy{Max: q.MaxLookups, Window: q.Window},
	}
	if len(q.PerCategory) > 0 {
		ps.PerCategory = make(map[intent.Category]ratelimit.Policy, len(q.PerCategory))
		for name, p := range q.PerCategory {
			window := p.Window
			if window == 0 {
				window = q.Window
			}
			ps.PerCategory[intent.Category(name)] = ratelimit.Policy{Max: p.MaxLookups, Window: window}
		}
	}
	return ps
}

// HistoryConfig configures conversation memory
type HistoryConfig struct {
	Backend     string        `yaml:"backend"`
	MaxTurns    int           `yaml:"max_turns"`
	RecentTurns int           `yaml:"recent_turns"`
	TTL         time.Duration `yaml:"ttl"`
}

// CostLimits defines cost constraints for the base assistant
type CostLimits struct {
	DailyMaxUSD       float64 `yaml:"daily_max_usd"`
	PerQueryMaxTokens int     `yaml:"per_query_max_tokens"`
	AlertThresholdUSD float64 `yaml:"alert_threshold_usd"`
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes YAML configuration, expanding environment variables first
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(expanded), &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// Validate applies defaults and environment fallbacks, then checks the
// configuration. Every problem is reported, not just the first.
func (c *Config) Validate() error {
	var errors []string

	c.applyEnv()
	c.applyDefaults()

	switch c.LLM.Provider {
	case "anthropic":
		if c.LLM.AnthropicKey == "" {
			errors = append(errors, "llm.anthropic_key is required (set in config or ANTHROPIC_API_KEY env var)")
		}
	case "openai":
		if c.LLM.OpenAIKey == "" {
			errors = append(errors, "llm.openai_key is required (set in config or OPENAI_API_KEY env var)")
		}
	case "ollama":
		if c.LLM.Model == "" {
			errors = append(errors, "llm.model is required for ollama")
		}
	default:
		errors = append(errors, fmt.Sprintf("unknown llm.provider: %q (must be anthropic, openai or ollama)", c.LLM.Provider))
	}

	// Quota has no defaults: cap and window must be chosen explicitly
	if c.Quota.MaxLookups <= 0 {
		errors = append(errors, "quota.max_lookups is required and must be greater than 0")
	}
	if c.Quota.Window <= 0 {
		errors = append(errors, "quota.window is required (e.g. 24h)")
	}
	for _, name := range slices.Sorted(maps.Keys(c.Quota.PerCategory)) {
		p := c.Quota.PerCategory[name]
		if !knownCategory(name) {
			errors = append(errors, fmt.Sprintf("quota.per_category: unknown category %q", name))
			continue
		}
		if p.MaxLookups <= 0 {
			errors = append(errors, fmt.Sprintf("quota.per_category.%s.max_lookups must be greater than 0", name))
		}
		if p.Window < 0 {
			errors = append(errors, fmt.Sprintf("quota.per_category.%s.window must not be negative", name))
		}
	}

	backends := []struct{ field, value string }{
		{"quota.backend", c.Quota.Backend},
		{"history.backend", c.History.Backend},
	}
	for _, b := range backends {
		switch b.value {
		case BackendMemory:
		case BackendRedis:
			if c.RedisURL == "" {
				errors = append(errors, fmt.Sprintf("redis_url is required when %s is redis (set in config or REDIS_URL env var)", b.field))
			}
		default:
			errors = append(errors, fmt.Sprintf("unknown %s: %q (must be memory or redis)", b.field, b.value))
		}
	}

	if c.Lookups.Timeout < 0 {
		errors = append(errors, "lookups.timeout must not be negative")
	}

	if c.CostLimits.AlertThresholdUSD > c.CostLimits.DailyMaxUSD {
		errors = append(errors, "cost_limits.alert_threshold_usd must not exceed daily_max_usd")
	}

	if len(errors) > 0 {
		return fmt.Errorf("%s", strings.Join(errors, "; "))
	}

	return nil
}

func (c *Config) applyEnv() {
	envFallback(&c.LLM.AnthropicKey, "ANTHROPIC_API_KEY")
	envFallback(&c.LLM.OpenAIKey, "OPENAI_API_KEY")
	envFallback(&c.Lookups.CoinGecko.APIKey, "COINGECKO_API_KEY")
	envFallback(&c.Lookups.OpenWeather.APIKey, "OPENWEATHER_API_KEY")
	envFallback(&c.Lookups.Tavily.APIKey, "TAVILY_API_KEY")
	envFallback(&c.RedisURL, "REDIS_URL")
}

func (c *Config) applyDefaults() {
	if c.Port <= 0 {
		c.Port = 8080
	}

	if c.LLM.Provider == "" {
		c.LLM.Provider = "anthropic"
	}
	c.LLM.Provider = strings.ToLower(c.LLM.Provider)

	if c.Lookups.DefaultCoin == "" {
		c.Lookups.DefaultCoin = "bitcoin"
	}

	if c.Quota.Backend == "" {
		c.Quota.Backend = BackendMemory
	}
	if c.History.Backend == "" {
		c.History.Backend = BackendMemory
	}

	if c.CostLimits.DailyMaxUSD == 0 {
		c.CostLimits.DailyMaxUSD = 10.0
	}
	if c.CostLimits.PerQueryMaxTokens == 0 {
		c.CostLimits.PerQueryMaxTokens = 100000
	}
	if c.CostLimits.AlertThresholdUSD == 0 {
		c.CostLimits.AlertThresholdUSD = c.CostLimits.DailyMaxUSD * 0.8
	}
}

func envFallback(field *string, key string) {
	if *field == "" {
		*field = os.Getenv(key)
	}
}

func knownCategory(name string) bool {
	for _, c := range intent.All {
		if string(c) == name {
			return true
		}
	}
	return false
}
