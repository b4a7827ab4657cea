package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Lookup outcomes
const (
	OutcomeOK          = "ok"
	OutcomeError       = "error"
	OutcomeTimeout     = "timeout"
	OutcomeRateLimited = "rate_limited"
	OutcomeRejected    = "rejected"
)

// Reply paths
const (
	PathPlain    = "plain"
	PathEnhanced = "enhanced"
	PathFallback = "fallback"
	PathFailed   = "failed"
)

var (
	LookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jester_lookups_total",
			Help: "Live-data lookups by category and outcome",
		},
		[]string{"category", "outcome"},
	)

	LookupDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "jester_lookup_duration_seconds",
			Help:    "Live-data provider latency in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"category"},
	)

	RepliesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jester_replies_total",
			Help: "Replies by pipeline path",
		},
		[]string{"path"},
	)

	AssistantLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "jester_assistant_latency_seconds",
			Help: "Base assistant latency in seconds",
		},
		[]string{"model"},
	)

	AssistantSpend = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jester_assistant_spend_usd_total",
			Help: "Base assistant spend in USD",
		},
		[]string{"model"},
	)
)
