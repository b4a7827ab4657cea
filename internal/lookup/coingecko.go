package lookup

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/First008/jester/internal/intent"
	"github.com/rs/zerolog"
)

// DefaultCoinGeckoURL is the public CoinGecko API base
const DefaultCoinGeckoURL = "https://api.coingecko.com/api/v3"

// CoinGeckoProvider fetches spot prices from the CoinGecko simple price API
type CoinGeckoProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  zerolog.Logger
}

// NewCoinGeckoProvider creates a crypto quote provider. apiKey is optional
// (demo keys raise the shared rate limit).
func NewCoinGeckoProvider(baseURL, apiKey string, timeout time.Duration, logger zerolog.Logger) *CoinGeckoProvider {
	if baseURL == "" {
		baseURL = DefaultCoinGeckoURL
	}

	return &CoinGeckoProvider{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		client:  newHTTPClient(timeout),
		logger:  logger,
	}
}

type coinGeckoPrice struct {
	USD       *float64 `json:"usd"`
	Change24h *float64 `json:"usd_24h_change"`
}

// Category implements Provider
func (p *CoinGeckoProvider) Category() intent.Category {
	return intent.CategoryCrypto
}

// Check implements Provider
func (p *CoinGeckoProvider) Check(det intent.Detection) error {
	if det.Coin == nil {
		return fmt.Errorf("coingecko: no coin in detection")
	}
	return nil
}

// Fetch implements Provider
func (p *CoinGeckoProvider) Fetch(ctx context.Context, det intent.Detection) (Record, error) {
	if err := p.Check(det); err != nil {
		return nil, err
	}
	coin := *det.Coin

	query := url.Values{}
	query.Set("ids", coin.ID)
	query.Set("vs_currencies", "usd")
	query.Set("include_24hr_change", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/simple/price?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("coingecko: create request: %w", err)
	}
	if p.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", p.apiKey)
	}

	var payload map[string]coinGeckoPrice
	if err := doJSON(p.client, req, &payload); err != nil {
		return nil, fmt.Errorf("coingecko: %w", err)
	}

	price, ok := payload[coin.ID]
	if !ok || price.USD == nil {
		return nil, fmt.Errorf("coingecko: %w: no usd price for %s", ErrMalformedPayload, coin.ID)
	}

	quote := CryptoQuote{
		Symbol:   coin.Symbol,
		Name:     coin.Name,
		PriceUSD: *price.USD,
	}
	if price.Change24h != nil {
		quote.Change24hPct = *price.Change24h
	}

	p.logger.Debug().
		Str("coin", coin.ID).
		Float64("price_usd", quote.PriceUSD).
		Float64("change_24h_pct", quote.Change24hPct).
		Msg("CoinGecko quote fetched")

	return quote, nil
}
