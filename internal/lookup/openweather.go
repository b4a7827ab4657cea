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

// DefaultOpenWeatherURL is the OpenWeatherMap current-weather API base
const DefaultOpenWeatherURL = "https://api.openweathermap.org/data/2.5"

// OpenWeatherProvider fetches current conditions from OpenWeatherMap
type OpenWeatherProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  zerolog.Logger
}

// NewOpenWeatherProvider creates a weather provider
func NewOpenWeatherProvider(baseURL, apiKey string, timeout time.Duration, logger zerolog.Logger) *OpenWeatherProvider {
	if baseURL == "" {
		baseURL = DefaultOpenWeatherURL
	}

	return &OpenWeatherProvider{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		client:  newHTTPClient(timeout),
		logger:  logger,
	}
}

type openWeatherResponse struct {
	Name string `json:"name"`
	Main struct {
		Temp *float64 `json:"temp"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
}

// Category implements Provider
func (p *OpenWeatherProvider) Category() intent.Category {
	return intent.CategoryWeather
}

// Check implements Provider
func (p *OpenWeatherProvider) Check(det intent.Detection) error {
	if p.apiKey == "" {
		return fmt.Errorf("openweather: %w", ErrNotConfigured)
	}
	if det.City == "" {
		return fmt.Errorf("openweather: no city in detection")
	}
	return nil
}

// Fetch implements Provider
func (p *OpenWeatherProvider) Fetch(ctx context.Context, det intent.Detection) (Record, error) {
	if err := p.Check(det); err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("q", det.City)
	query.Set("appid", p.apiKey)
	query.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/weather?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("openweather: create request: %w", err)
	}

	var payload openWeatherResponse
	if err := doJSON(p.client, req, &payload); err != nil {
		return nil, fmt.Errorf("openweather: %w", err)
	}

	if payload.Main.Temp == nil || len(payload.Weather) == 0 {
		return nil, fmt.Errorf("openweather: %w: missing temperature or conditions", ErrMalformedPayload)
	}

	city := payload.Name
	if city == "" {
		city = det.City
	}

	weather := Weather{
		City:         city,
		TemperatureC: *payload.Main.Temp,
		Description:  payload.Weather[0].Description,
	}

	p.logger.Debug().
		Str("city", weather.City).
		Float64("temperature_c", weather.TemperatureC).
		Msg("OpenWeather conditions fetched")

	return weather, nil
}
