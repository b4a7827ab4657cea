// Package telemetry provides assistant cost tracking and pipeline metrics.
//
// CostTracker accounts for the base assistant's LLM spend with a daily
// budget, an alert threshold and a per-reply token ceiling. The Prometheus
// collectors in metrics.go cover lookups and replies.
package telemetry

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	ErrDailyBudgetExceeded = errors.New("daily cost limit exceeded")
	ErrTokenLimitExceeded  = errors.New("per-reply token limit exceeded")
)

// PricingTable is the USD price per million tokens for one model
type PricingTable struct {
	InputPricePerMToken  float64
	OutputPricePerMToken float64
}

// Pricing per model (as of December 2025). Models not listed, such as local
// Ollama models, are tracked at zero cost.
var Pricing = map[string]PricingTable{
	"claude-opus-4.5":            {InputPricePerMToken: 5.00, OutputPricePerMToken: 25.00},
	"claude-opus-4-5-20251101":   {InputPricePerMToken: 5.00, OutputPricePerMToken: 25.00},
	"claude-sonnet-4.5":          {InputPricePerMToken: 3.00, OutputPricePerMToken: 15.00},
	"claude-sonnet-4-5-20250929": {InputPricePerMToken: 3.00, OutputPricePerMToken: 15.00},
	"claude-haiku-3.5":           {InputPricePerMToken: 0.80, OutputPricePerMToken: 4.00},
	"claude-3-5-haiku-20241022":  {InputPricePerMToken: 0.80, OutputPricePerMToken: 4.00},

	"gpt-4o":                 {InputPricePerMToken: 2.50, OutputPricePerMToken: 10.00},
	"gpt-4o-2024-08-06":      {InputPricePerMToken: 2.50, OutputPricePerMToken: 10.00},
	"gpt-4o-mini":            {InputPricePerMToken: 0.15, OutputPricePerMToken: 0.60},
	"gpt-4o-mini-2024-07-18": {InputPricePerMToken: 0.15, OutputPricePerMToken: 0.60},
}

// cachedPriceRatio is the share of the input price charged for cache reads
const cachedPriceRatio = 0.1

// Cost returns the USD cost of one reply
func Cost(model string, inputTokens, outputTokens, cachedTokens int) float64 {
	p := Pricing[model]
	return float64(cachedTokens)/1_000_000*p.InputPricePerMToken*cachedPriceRatio +
		float64(inputTokens)/1_000_000*p.InputPricePerMToken +
		float64(outputTokens)/1_000_000*p.OutputPricePerMToken
}

// usage is a token and spend tally
type usage struct {
	spend        float64
	inputTokens  int64
	outputTokens int64
	cachedTokens int64
	requests     int
}

func (u *usage) add(cost float64, input, output, cached int) {
	u.spend += cost
	u.inputTokens += int64(input)
	u.outputTokens += int64(output)
	u.cachedTokens += int64(cached)
	u.requests++
}

// CostTracker tracks assistant spend and enforces the daily budget
type CostTracker struct {
	mu sync.Mutex

	dailyMaxUSD       float64
	alertThresholdUSD float64
	perQueryMaxTokens int

	day     string
	daily   usage
	total   usage
	byModel map[string]int

	now    func() time.Time
	logger zerolog.Logger
}

// NewCostTracker creates a cost tracker. A perQueryMaxTokens of 0 disables
// the token ceiling.
func NewCostTracker(dailyMaxUSD, alertThresholdUSD float64, perQueryMaxTokens int, logger zerolog.Logger) *CostTracker {
	ct := &CostTracker{
		dailyMaxUSD:       dailyMaxUSD,
		alertThresholdUSD: alertThresholdUSD,
		perQueryMaxTokens: perQueryMaxTokens,
		byModel:           make(map[string]int),
		now:               time.Now,
		logger:            logger,
	}
	ct.day = ct.today()
	return ct
}

// RecordRequest records one reply and returns its cost. A reply that would
// break the budget or the token ceiling is not recorded.
func (ct *CostTracker) RecordRequest(model string, inputTokens, outputTokens, cachedTokens int) (float64, error) {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	ct.rollover()

	if _, ok := Pricing[model]; !ok {
		ct.logger.Debug().Str("model", model).Msg("No pricing for model, tracking at zero cost")
	}

	tokens := inputTokens + outputTokens + cachedTokens
	if ct.perQueryMaxTokens > 0 && tokens > ct.perQueryMaxTokens {
		return 0, fmt.Errorf("%w: tokens=%d, limit=%d", ErrTokenLimitExceeded, tokens, ct.perQueryMaxTokens)
	}

	cost := Cost(model, inputTokens, outputTokens, cachedTokens)
	if ct.daily.spend+cost > ct.dailyMaxUSD {
		return 0, fmt.Errorf("%w: current=$%.2f, limit=$%.2f, this request=$%.2f",
			ErrDailyBudgetExceeded, ct.daily.spend, ct.dailyMaxUSD, cost)
	}

	before := ct.daily.spend
	ct.daily.add(cost, inputTokens, outputTokens, cachedTokens)
	ct.total.add(cost, inputTokens, outputTokens, cachedTokens)
	ct.byModel[model]++
	AssistantSpend.WithLabelValues(model).Add(cost)

	if before < ct.alertThresholdUSD && ct.daily.spend >= ct.alertThresholdUSD {
		ct.logger.Warn().
			Float64("daily_spend_usd", ct.daily.spend).
			Float64("alert_threshold_usd", ct.alertThresholdUSD).
			Float64("daily_max_usd", ct.dailyMaxUSD).
			Msg("Daily cost alert threshold reached")
	}

	return cost, nil
}

// OverBudget reports whether today's spend has reached the daily limit
func (ct *CostTracker) OverBudget() bool {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	ct.rollover()
	return ct.daily.spend >= ct.dailyMaxUSD
}

func (ct *CostTracker) today() string {
	return ct.now().Format("2006-01-02")
}

// rollover resets the daily tally on the first call of a new day
func (ct *CostTracker) rollover() {
	today := ct.today()
	if today == ct.day {
		return
	}

	ct.logger.Info().
		Str("previous_day", ct.day).
		Float64("previous_daily_spend_usd", ct.daily.spend).
		Int("previous_daily_requests", ct.daily.requests).
		Msg("Daily cost tracking reset")

	ct.daily = usage{}
	ct.day = today
}

// GetDailyStats returns today's statistics
func (ct *CostTracker) GetDailyStats() DailyStats {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	ct.rollover()

	return DailyStats{
		Date:         ct.day,
		SpendUSD:     ct.daily.spend,
		InputTokens:  ct.daily.inputTokens,
		OutputTokens: ct.daily.outputTokens,
		CachedTokens: ct.daily.cachedTokens,
		RequestCount: ct.daily.requests,
		LimitUSD:     ct.dailyMaxUSD,
		RemainingUSD: ct.dailyMaxUSD - ct.daily.spend,
	}
}

// GetTotalStats returns statistics since start
func (ct *CostTracker) GetTotalStats() TotalStats {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	byModel := make(map[string]int, len(ct.byModel))
	for m, n := range ct.byModel {
		byModel[m] = n
	}

	return TotalStats{
		TotalSpendUSD:     ct.total.spend,
		TotalInputTokens:  ct.total.inputTokens,
		TotalOutputTokens: ct.total.outputTokens,
		TotalCachedTokens: ct.total.cachedTokens,
		TotalRequests:     ct.total.requests,
		RequestsByModel:   byModel,
	}
}

// DailyStats holds daily cost statistics
type DailyStats struct {
	Date         string  `json:"date"`
	SpendUSD     float64 `json:"spend_usd"`
	InputTokens  int64   `json:"input_tokens"`
	OutputTokens int64   `json:"output_tokens"`
	CachedTokens int64   `json:"cached_tokens"`
	RequestCount int     `json:"request_count"`
	LimitUSD     float64 `json:"limit_usd"`
	RemainingUSD float64 `json:"remaining_usd"`
}

// TotalStats holds overall cost statistics
type TotalStats struct {
	TotalSpendUSD     float64        `json:"total_spend_usd"`
	TotalInputTokens  int64          `json:"total_input_tokens"`
	TotalOutputTokens int64          `json:"total_output_tokens"`
	TotalCachedTokens int64          `json:"total_cached_tokens"`
	TotalRequests     int            `json:"total_requests"`
	RequestsByModel   map[string]int `json:"requests_by_model"`
}
