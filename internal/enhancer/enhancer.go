// Package enhancer fetches live data for an utterance.
//
// The Enhancer detects which categories an utterance needs, issues one
// provider call per category concurrently and joins them into a Bundle.
// Provider failures, timeouts and exhausted quotas are absorbed here: the
// category is left out of the bundle and nothing is returned to the caller
// as an error.
package enhancer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/First008/jester/internal/intent"
	"github.com/First008/jester/internal/lookup"
	"github.com/First008/jester/internal/ratelimit"
	"github.com/First008/jester/pkg/telemetry"
	"github.com/rs/zerolog"
)

// DefaultTimeout bounds each provider call
const DefaultTimeout = 4 * time.Second

// Enhancer orchestrates the live-data providers
type Enhancer struct {
	detector  *intent.Detector
	providers map[intent.Category]lookup.Provider
	limiter   ratelimit.Limiter
	timeout   time.Duration
	logger    zerolog.Logger
}

// New creates an enhancer. limiter may be nil to disable quotas.
func New(detector *intent.Detector, providers []lookup.Provider, limiter ratelimit.Limiter, timeout time.Duration, logger zerolog.Logger) *Enhancer {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	byCategory := make(map[intent.Category]lookup.Provider, len(providers))
	for _, p := range providers {
		byCategory[p.Category()] = p
	}

	return &Enhancer{
		detector:  detector,
		providers: byCategory,
		limiter:   limiter,
		timeout:   timeout,
		logger:    logger,
	}
}

// Outcome is the result of one provider call: exactly one of Record or Err is set
type Outcome struct {
	Category intent.Category
	Record   lookup.Record
	Err      error
}

// Enhance returns the live data for an utterance. It returns nil when no
// category was detected, and an empty bundle when categories were detected
// but every lookup failed or was over quota. Callers treat an empty bundle
// the same as nil.
func (e *Enhancer) Enhance(ctx context.Context, utterance, userID, platform string) *Bundle {
	det := e.detector.Detect(utterance)
	if !det.NeedsLookup() {
		return nil
	}

	logger := e.logger.With().
		Str("user_id", userID).
		Str("platform", platform).
		Logger()

	bundle := &Bundle{Attempted: det.Categories}

	for _, outcome := range e.fetchAll(ctx, det, userID) {
		if outcome.Err != nil {
			logger.Warn().
				Err(outcome.Err).
				Str("category", string(outcome.Category)).
				Msg("Lookup skipped")
			continue
		}

		if err := bundle.add(outcome.Record); err != nil {
			logger.Warn().Err(err).Str("category", string(outcome.Category)).Msg("Lookup rejected")
			continue
		}
	}

	bundle.finalize()

	logger.Info().
		Interface("attempted", bundle.Attempted).
		Interface("fetched", bundle.Categories()).
		Bool("cross_reference", len(bundle.CrossReference) > 0).
		Msg("Context enhanced")

	return bundle
}

// fetchAll runs one provider call per detected category and waits for all of them
func (e *Enhancer) fetchAll(ctx context.Context, det intent.Detection, userID string) []Outcome {
	outcomes := make([]Outcome, len(det.Categories))

	var wg sync.WaitGroup
	for i, category := range det.Categories {
		wg.Add(1)
		go func(i int, category intent.Category) {
			defer wg.Done()
			outcomes[i] = e.fetch(ctx, det, userID, category)
		}(i, category)
	}
	wg.Wait()

	return outcomes
}

// fetch performs one quota-checked, time-bounded provider call
func (e *Enhancer) fetch(ctx context.Context, det intent.Detection, userID string, category intent.Category) (out Outcome) {
	out.Category = category
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			out.Record = nil
			out.Err = fmt.Errorf("%w: provider panic: %v", lookup.ErrProviderUnavailable, r)
		}
		telemetry.LookupsTotal.WithLabelValues(string(category), outcomeLabel(out)).Inc()
	}()

	provider, ok := e.providers[category]
	if !ok {
		out.Err = fmt.Errorf("%w: no provider for %s", lookup.ErrNotConfigured, category)
		return out
	}

	if err := provider.Check(det); err != nil {
		out.Err = err
		return out
	}

	if e.limiter != nil {
		allowed, err := e.limiter.Allow(ctx, userID, category)
		switch {
		case err != nil:
			// Quota backend down, fail open
			e.logger.Warn().Err(err).Str("category", string(category)).Msg("Quota check failed, allowing lookup")
		case !allowed:
			out.Err = fmt.Errorf("%w: user %s, category %s", ratelimit.ErrRateLimitExceeded, userID, category)
			return out
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	record, err := provider.Fetch(callCtx, det)
	telemetry.LookupDuration.WithLabelValues(string(category)).Observe(time.Since(start).Seconds())

	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %w after %s: %v", lookup.ErrProviderUnavailable, context.DeadlineExceeded, e.timeout, err)
		}
		out.Err = err
		return out
	}

	if record == nil || record.Category() != category {
		out.Err = fmt.Errorf("%w: %s provider returned %T", lookup.ErrMalformedPayload, category, record)
		return out
	}

	out.Record = record
	return out
}

func outcomeLabel(o Outcome) string {
	switch {
	case o.Err == nil:
		return telemetry.OutcomeOK
	case errors.Is(o.Err, ratelimit.ErrRateLimitExceeded):
		return telemetry.OutcomeRateLimited
	case errors.Is(o.Err, lookup.ErrMalformedPayload):
		return telemetry.OutcomeRejected
	case errors.Is(o.Err, context.DeadlineExceeded):
		return telemetry.OutcomeTimeout
	default:
		return telemetry.OutcomeError
	}
}
