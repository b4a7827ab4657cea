package testing

import (
	"io"
	"time"

	"github.com/First008/jester/internal/config"
	"github.com/First008/jester/internal/lookup"
	"github.com/First008/jester/pkg/telemetry"
	"github.com/rs/zerolog"
)

// Sample lookup records
var (
	// SampleBitcoinQuote is a crypto quote with a large price
	SampleBitcoinQuote = lookup.CryptoQuote{Symbol: "BTC", Name: "Bitcoin", PriceUSD: 113000, Change24hPct: -0.86}

	// SampleLondonWeather is a rainy day
	SampleLondonWeather = lookup.Weather{City: "London", TemperatureC: 12.5, Description: "light rain"}

	// SampleNewsSummary is a short search answer with sources
	SampleNewsSummary = lookup.SearchSummary{
		Text:    "Markets rallied after the rate decision.",
		Sources: []string{"https://example.com/markets"},
	}
)

// NewTestConfig creates a valid in-memory configuration
func NewTestConfig() *config.Config {
	cfg := &config.Config{
		Port: 8080,
		LLM: config.LLMConfig{
			Provider:     "anthropic",
			Model:        "claude-sonnet-4-5-20250929",
			AnthropicKey: "sk-ant-test-key-123",
		},
		Persona: config.PersonaConfig{Name: "Jester"},
		Lookups: config.LookupsConfig{
			Timeout:     2 * time.Second,
			DefaultCoin: "bitcoin",
			OpenWeather: config.ProviderConfig{APIKey: "ow-test-key"},
			Tavily:      config.ProviderConfig{APIKey: "tvly-test-key"},
		},
		Quota: config.QuotaConfig{
			Backend:    config.BackendMemory,
			MaxLookups: 10,
			Window:     time.Hour,
		},
		History: config.HistoryConfig{
			Backend:  config.BackendMemory,
			MaxTurns: 20,
		},
		CostLimits: config.CostLimits{
			DailyMaxUSD:       10.0,
			AlertThresholdUSD: 8.0,
			PerQueryMaxTokens: 100000,
		},
	}
	return cfg
}

// NewTestLogger creates a zerolog.Logger that discards output (for quiet tests)
func NewTestLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

// NewTestCostTracker creates a telemetry.CostTracker for testing
func NewTestCostTracker() *telemetry.CostTracker {
	return telemetry.NewCostTracker(10.0, 8.0, 100000, NewTestLogger())
}
