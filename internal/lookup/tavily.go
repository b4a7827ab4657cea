package lookup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/First008/jester/internal/intent"
	"github.com/rs/zerolog"
)

// DefaultTavilyURL is the Tavily search API base
const DefaultTavilyURL = "https://api.tavily.com"

// maxSummaryChars bounds the summary injected into prompts
const maxSummaryChars = 600

// TavilyProvider answers news and web questions through the Tavily search API
type TavilyProvider struct {
	baseURL    string
	apiKey     string
	maxResults int
	client     *http.Client
	logger     zerolog.Logger
}

// NewTavilyProvider creates a search provider
func NewTavilyProvider(baseURL, apiKey string, maxResults int, timeout time.Duration, logger zerolog.Logger) *TavilyProvider {
	if baseURL == "" {
		baseURL = DefaultTavilyURL
	}
	if maxResults <= 0 {
		maxResults = 3
	}

	return &TavilyProvider{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		maxResults: maxResults,
		client:     newHTTPClient(timeout),
		logger:     logger,
	}
}

type tavilyRequest struct {
	APIKey        string `json:"api_key"`
	Query         string `json:"query"`
	Topic         string `json:"topic,omitempty"`
	SearchDepth   string `json:"search_depth,omitempty"`
	IncludeAnswer bool   `json:"include_answer"`
	MaxResults    int    `json:"max_results"`
}

type tavilyResponse struct {
	Answer  string `json:"answer"`
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

// Category implements Provider
func (p *TavilyProvider) Category() intent.Category {
	return intent.CategoryNews
}

// Check implements Provider
func (p *TavilyProvider) Check(det intent.Detection) error {
	if p.apiKey == "" {
		return fmt.Errorf("tavily: %w", ErrNotConfigured)
	}
	if det.Topic == "" {
		return fmt.Errorf("tavily: no topic in detection")
	}
	return nil
}

// Fetch implements Provider
func (p *TavilyProvider) Fetch(ctx context.Context, det intent.Detection) (Record, error) {
	if err := p.Check(det); err != nil {
		return nil, err
	}

	body, err := json.Marshal(tavilyRequest{
		APIKey:        p.apiKey,
		Query:         det.Topic,
		Topic:         "news",
		SearchDepth:   "basic",
		IncludeAnswer: true,
		MaxResults:    p.maxResults,
	})
	if err != nil {
		return nil, fmt.Errorf("tavily: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("tavily: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var payload tavilyResponse
	if err := doJSON(p.client, req, &payload); err != nil {
		return nil, fmt.Errorf("tavily: %w", err)
	}

	summary := SearchSummary{Text: strings.TrimSpace(payload.Answer)}
	for _, r := range payload.Results {
		if r.URL != "" {
			summary.Sources = append(summary.Sources, r.URL)
		}
	}

	// No answer: fall back to the top result titles
	if summary.Text == "" {
		var b strings.Builder
		for _, r := range payload.Results {
			if r.Title == "" {
				continue
			}
			if b.Len() > 0 {
				b.WriteString("; ")
			}
			b.WriteString(r.Title)
		}
		summary.Text = b.String()
	}

	if summary.Text == "" {
		return nil, fmt.Errorf("tavily: %w: no answer or results", ErrMalformedPayload)
	}
	summary.Text = truncate(summary.Text, maxSummaryChars)

	p.logger.Debug().
		Str("query", det.Topic).
		Int("sources", len(summary.Sources)).
		Msg("Tavily search completed")

	return summary, nil
}
