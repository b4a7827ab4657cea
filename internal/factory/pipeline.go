package factory

import (
	"context"
	"fmt"

	"github.com/First008/jester/internal/assistant"
	"github.com/First008/jester/internal/composer"
	"github.com/First008/jester/internal/config"
	"github.com/First008/jester/internal/enhancer"
	"github.com/First008/jester/internal/intent"
	"github.com/First008/jester/internal/persona"
	"github.com/First008/jester/pkg/telemetry"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Pipeline is the wired reply pipeline
type Pipeline struct {
	Composer    *composer.Composer
	Assistant   *assistant.LLMAssistant
	Persona     *persona.Persona
	CostTracker *telemetry.CostTracker

	redis *redis.Client
}

// NewPipeline builds everything a reply needs from config
func NewPipeline(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Pipeline, error) {
	p := &Pipeline{}

	if cfg.Quota.Backend == config.BackendRedis || cfg.History.Backend == config.BackendRedis {
		rdb, err := NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		p.redis = rdb
		logger.Info().Msg("Connected to Redis")
	}

	// Leave Cmdable nil rather than a typed nil pointer
	var rdb redis.Cmdable
	if p.redis != nil {
		rdb = p.redis
	}

	provider, err := NewLLMProvider(cfg.LLM, logger)
	if err != nil {
		p.Close()
		return nil, err
	}

	limiter, err := NewLimiter(cfg.Quota, rdb)
	if err != nil {
		p.Close()
		return nil, err
	}

	store, err := NewHistoryStore(cfg.History, rdb)
	if err != nil {
		p.Close()
		return nil, err
	}

	p.Persona = persona.New(cfg.Persona.Name, cfg.Persona.Voice, cfg.Persona.SafeVoice)
	p.CostTracker = telemetry.NewCostTracker(
		cfg.CostLimits.DailyMaxUSD,
		cfg.CostLimits.AlertThresholdUSD,
		cfg.CostLimits.PerQueryMaxTokens,
		logger,
	)
	p.Assistant = assistant.NewLLMAssistant(provider, p.Persona, store, cfg.History.RecentTurns, p.CostTracker, logger)

	enh := enhancer.New(
		intent.NewDetector(cfg.Lookups.DefaultCoin, cfg.Lookups.DefaultCity),
		NewLookupProviders(cfg.Lookups, logger),
		limiter,
		cfg.Lookups.Timeout,
		logger,
	)
	p.Composer = composer.New(enh, p.Assistant, p.Persona, logger)

	logger.Info().
		Str("persona", p.Persona.Name).
		Str("model", p.Assistant.GetModel()).
		Str("quota_backend", cfg.Quota.Backend).
		Str("history_backend", cfg.History.Backend).
		Msg("Reply pipeline ready")

	return p, nil
}

// Close releases the pipeline's connections
func (p *Pipeline) Close() error {
	if p.redis == nil {
		return nil
	}
	if err := p.redis.Close(); err != nil {
		return fmt.Errorf("close redis: %w", err)
	}
	return nil
}
