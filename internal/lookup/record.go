// Package lookup provides the live-data provider clients.
//
// Every provider makes a single HTTP call per Fetch and returns one of the
// Record variants. Payloads that do not decode into the expected shape are
// rejected here rather than passed on.
package lookup

import (
	"context"
	"errors"

	"github.com/First008/jester/internal/intent"
)

var (
	// ErrProviderUnavailable indicates the provider call failed or timed out.
	ErrProviderUnavailable = errors.New("lookup provider unavailable")

	// ErrMalformedPayload indicates the provider answered with a payload
	// that does not match the expected record shape.
	ErrMalformedPayload = errors.New("malformed provider payload")

	// ErrNotConfigured indicates the provider is missing credentials.
	ErrNotConfigured = errors.New("lookup provider not configured")
)

// Record is a normalized provider result. The set of variants is closed:
// CryptoQuote, Weather and SearchSummary.
type Record interface {
	Category() intent.Category
	record()
}

// CryptoQuote is a spot price for one coin
type CryptoQuote struct {
	Symbol       string  `json:"symbol"`
	Name         string  `json:"name"`
	PriceUSD     float64 `json:"price_usd"`
	Change24hPct float64 `json:"change_24h_pct"`
}

// Weather is the current conditions for one city
type Weather struct {
	City         string  `json:"city"`
	TemperatureC float64 `json:"temperature_c"`
	Description  string  `json:"description"`
}

// SearchSummary is a condensed web search answer
type SearchSummary struct {
	Text    string   `json:"text"`
	Sources []string `json:"sources,omitempty"`
}

func (CryptoQuote) Category() intent.Category   { return intent.CategoryCrypto }
func (Weather) Category() intent.Category       { return intent.CategoryWeather }
func (SearchSummary) Category() intent.Category { return intent.CategoryNews }

func (CryptoQuote) record()   {}
func (Weather) record()       {}
func (SearchSummary) record() {}

// Provider fetches live data for one category
type Provider interface {
	// Category returns the category this provider serves
	Category() intent.Category

	// Check reports whether Fetch could run for the detection at all,
	// without any I/O. The quota is only charged for lookups that pass.
	Check(det intent.Detection) error

	// Fetch performs one lookup for the detection
	Fetch(ctx context.Context, det intent.Detection) (Record, error)
}
