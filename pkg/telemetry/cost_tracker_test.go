package telemetry

import (
	"errors"
	"io"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// Helper to create a test logger that discards output
func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestNewCostTracker(t *testing.T) {
	tracker := NewCostTracker(100.0, 80.0, 100000, testLogger())

	stats := tracker.GetDailyStats()
	if stats.LimitUSD != 100.0 {
		t.Errorf("Expected daily limit 100.0, got %f", stats.LimitUSD)
	}
	if stats.SpendUSD != 0.0 {
		t.Errorf("Expected initial spend 0.0, got %f", stats.SpendUSD)
	}
	if stats.RemainingUSD != 100.0 {
		t.Errorf("Expected remaining 100.0, got %f", stats.RemainingUSD)
	}
	if tracker.OverBudget() {
		t.Error("Expected fresh tracker to be under budget")
	}
}

func TestRecordRequest_Pricing(t *testing.T) {
	tests := []struct {
		model  string
		input  float64
		output float64
	}{
		{"claude-sonnet-4-5-20250929", 3.00, 15.00},
		{"claude-opus-4-5-20251101", 5.00, 25.00},
		{"claude-3-5-haiku-20241022", 0.80, 4.00},
		{"gpt-4o-mini", 0.15, 0.60},
		{"gpt-4o", 2.50, 10.00},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			tracker := NewCostTracker(100.0, 80.0, 100000, testLogger())

			cost, err := tracker.RecordRequest(tt.model, 10000, 5000, 0)
			if err != nil {
				t.Fatalf("RecordRequest failed: %v", err)
			}

			expected := 10000.0/1_000_000*tt.input + 5000.0/1_000_000*tt.output
			if !almostEqual(cost, expected) {
				t.Errorf("Expected cost $%.6f, got $%.6f", expected, cost)
			}

			stats := tracker.GetDailyStats()
			if stats.RequestCount != 1 {
				t.Errorf("Expected 1 request, got %d", stats.RequestCount)
			}
			if stats.InputTokens != 10000 || stats.OutputTokens != 5000 {
				t.Errorf("Expected 10000/5000 tokens, got %d/%d", stats.InputTokens, stats.OutputTokens)
			}
		})
	}
}

func TestRecordRequest_CachedTokenDiscount(t *testing.T) {
	tracker := NewCostTracker(100.0, 80.0, 200000, testLogger())

	cost, err := tracker.RecordRequest("claude-sonnet-4-5-20250929", 10000, 5000, 100000)
	if err != nil {
		t.Fatalf("RecordRequest failed: %v", err)
	}

	// 100k cached tokens at 10% of $3.00/M
	expected := 0.03 + 0.03 + 0.075
	if !almostEqual(cost, expected) {
		t.Errorf("Expected cost $%.6f, got $%.6f", expected, cost)
	}

	if stats := tracker.GetDailyStats(); stats.CachedTokens != 100000 {
		t.Errorf("Expected 100000 cached tokens, got %d", stats.CachedTokens)
	}
}

func TestRecordRequest_LocalModelIsFree(t *testing.T) {
	tracker := NewCostTracker(0.01, 0.005, 100000, testLogger())

	cost, err := tracker.RecordRequest("llama3.2", 20000, 5000, 0)
	if err != nil {
		t.Fatalf("RecordRequest failed: %v", err)
	}
	if cost != 0 {
		t.Errorf("Expected zero cost for local model, got $%.6f", cost)
	}

	stats := tracker.GetTotalStats()
	if stats.TotalRequests != 1 {
		t.Errorf("Expected 1 request, got %d", stats.TotalRequests)
	}
	if stats.RequestsByModel["llama3.2"] != 1 {
		t.Errorf("Expected llama3.2 request count 1, got %d", stats.RequestsByModel["llama3.2"])
	}
}

func TestRecordRequest_ExceedsDailyLimit(t *testing.T) {
	tracker := NewCostTracker(0.20, 0.16, 100000, testLogger())

	cost1, err := tracker.RecordRequest("claude-sonnet-4-5-20250929", 10000, 5000, 0)
	if err != nil {
		t.Fatalf("First request failed: %v", err)
	}

	// A second $0.105 reply would take spend past $0.20
	_, err = tracker.RecordRequest("claude-sonnet-4-5-20250929", 10000, 5000, 0)
	if !errors.Is(err, ErrDailyBudgetExceeded) {
		t.Fatalf("Expected ErrDailyBudgetExceeded, got %v", err)
	}

	stats := tracker.GetDailyStats()
	if stats.SpendUSD != cost1 {
		t.Errorf("Expected spend $%.6f after rejected request, got $%.6f", cost1, stats.SpendUSD)
	}
	if stats.RequestCount != 1 {
		t.Errorf("Expected 1 successful request, got %d", stats.RequestCount)
	}
}

func TestOverBudget(t *testing.T) {
	limit := Cost("claude-sonnet-4-5-20250929", 10000, 5000, 0)
	tracker := NewCostTracker(limit, limit/2, 100000, testLogger())

	if _, err := tracker.RecordRequest("claude-sonnet-4-5-20250929", 10000, 5000, 0); err != nil {
		t.Fatalf("RecordRequest failed: %v", err)
	}

	if !tracker.OverBudget() {
		t.Error("Expected tracker to be over budget once spend reaches the limit")
	}
}

func TestRecordRequest_PerQueryTokenLimit(t *testing.T) {
	tracker := NewCostTracker(100.0, 80.0, 10000, testLogger())

	_, err := tracker.RecordRequest("claude-sonnet-4-5-20250929", 10000, 5000, 0)
	if !errors.Is(err, ErrTokenLimitExceeded) {
		t.Fatalf("Expected ErrTokenLimitExceeded, got %v", err)
	}

	if stats := tracker.GetDailyStats(); stats.InputTokens != 0 {
		t.Errorf("Expected 0 input tokens after rejection, got %d", stats.InputTokens)
	}

	if _, err := tracker.RecordRequest("claude-sonnet-4-5-20250929", 6000, 3000, 0); err != nil {
		t.Fatalf("Request within token limit failed: %v", err)
	}
}

func TestRecordRequest_ZeroTokenLimitDisablesCeiling(t *testing.T) {
	tracker := NewCostTracker(100.0, 80.0, 0, testLogger())

	if _, err := tracker.RecordRequest("gpt-4o-mini", 500000, 10000, 0); err != nil {
		t.Errorf("Expected no token ceiling, got %v", err)
	}
}

func TestGetTotalStats_Aggregation(t *testing.T) {
	tracker := NewCostTracker(100.0, 80.0, 100000, testLogger())

	calls := []struct {
		model                 string
		input, output, cached int
	}{
		{"claude-sonnet-4-5-20250929", 10000, 5000, 0},
		{"gpt-4o-mini", 20000, 10000, 0},
		{"gpt-4o-mini", 5000, 2500, 1000},
	}
	for _, c := range calls {
		if _, err := tracker.RecordRequest(c.model, c.input, c.output, c.cached); err != nil {
			t.Fatalf("RecordRequest(%s) failed: %v", c.model, err)
		}
	}

	stats := tracker.GetTotalStats()
	if stats.TotalInputTokens != 35000 {
		t.Errorf("Expected 35000 total input tokens, got %d", stats.TotalInputTokens)
	}
	if stats.TotalOutputTokens != 17500 {
		t.Errorf("Expected 17500 total output tokens, got %d", stats.TotalOutputTokens)
	}
	if stats.TotalCachedTokens != 1000 {
		t.Errorf("Expected 1000 total cached tokens, got %d", stats.TotalCachedTokens)
	}
	if stats.TotalRequests != 3 {
		t.Errorf("Expected 3 total requests, got %d", stats.TotalRequests)
	}
	if stats.RequestsByModel["gpt-4o-mini"] != 2 {
		t.Errorf("Expected 2 gpt-4o-mini requests, got %d", stats.RequestsByModel["gpt-4o-mini"])
	}
}

func TestPricing_OutputCostsMore(t *testing.T) {
	for model, pricing := range Pricing {
		if pricing.InputPricePerMToken <= 0 {
			t.Errorf("Model %s has invalid input price: %f", model, pricing.InputPricePerMToken)
		}
		if pricing.OutputPricePerMToken <= pricing.InputPricePerMToken {
			t.Errorf("Model %s: output price (%f) should be higher than input price (%f)",
				model, pricing.OutputPricePerMToken, pricing.InputPricePerMToken)
		}
	}
}

func TestConcurrentAccess(t *testing.T) {
	tracker := NewCostTracker(1000.0, 800.0, 100000, testLogger())

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = tracker.RecordRequest("claude-haiku-3.5", 1000, 500, 0)
		}()
	}
	wg.Wait()

	total := tracker.GetTotalStats()
	daily := tracker.GetDailyStats()
	if total.TotalRequests != 100 {
		t.Errorf("Expected 100 requests, got %d", total.TotalRequests)
	}
	if daily.RequestCount != total.TotalRequests {
		t.Errorf("Daily request count (%d) doesn't match total (%d)", daily.RequestCount, total.TotalRequests)
	}
}

func TestDailyReset(t *testing.T) {
	tracker := NewCostTracker(100.0, 80.0, 100000, testLogger())

	day := time.Date(2025, 12, 1, 23, 0, 0, 0, time.UTC)
	tracker.now = func() time.Time { return day }
	tracker.day = tracker.today()

	cost, err := tracker.RecordRequest("claude-sonnet-4-5-20250929", 10000, 5000, 0)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}

	day = day.Add(2 * time.Hour)

	daily := tracker.GetDailyStats()
	if daily.SpendUSD != 0.0 {
		t.Errorf("Expected daily spend $0.0 after reset, got $%.6f", daily.SpendUSD)
	}
	if daily.RequestCount != 0 {
		t.Errorf("Expected 0 requests after reset, got %d", daily.RequestCount)
	}
	if daily.Date != "2025-12-02" {
		t.Errorf("Expected date 2025-12-02, got %s", daily.Date)
	}

	total := tracker.GetTotalStats()
	if total.TotalSpendUSD != cost {
		t.Errorf("Expected total spend $%.6f, got $%.6f", cost, total.TotalSpendUSD)
	}
}
