// Package client calls a remote Jester over its HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/First008/jester/internal/composer"
	"github.com/First008/jester/internal/server"
	"github.com/rs/zerolog"
)

// DefaultTimeout bounds one remote reply
const DefaultTimeout = 60 * time.Second

// HTTPReplier forwards requests to a Jester HTTP server
type HTTPReplier struct {
	baseURL string
	client  *http.Client
	logger  zerolog.Logger
}

// NewHTTPReplier creates a replier for the server at baseURL
func NewHTTPReplier(baseURL string, timeout time.Duration, logger zerolog.Logger) *HTTPReplier {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPReplier{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Compose posts the request to /reply
func (h *HTTPReplier) Compose(ctx context.Context, req composer.Request) (*composer.Reply, error) {
	jsonData, err := json.Marshal(server.ReplyRequest{
		UserID:         req.UserID,
		Message:        req.Message,
		Platform:       req.Platform,
		ConversationID: req.ConversationID,
		SafeMode:       req.SafeMode,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+"/reply", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to call jester: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if resp.StatusCode == http.StatusServiceUnavailable {
			return nil, fmt.Errorf("%w: remote status %d", composer.ErrAssistantUnavailable, resp.StatusCode)
		}
		return nil, fmt.Errorf("jester error (status %d): %s", resp.StatusCode, string(body))
	}

	var replyResp server.ReplyResponse
	if err := json.NewDecoder(resp.Body).Decode(&replyResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	h.logger.Debug().
		Str("request_id", replyResp.RequestID).
		Str("path", replyResp.Path).
		Msg("Jester responded")

	return &composer.Reply{
		Text:    replyResp.Reply,
		Model:   replyResp.Model,
		Path:    replyResp.Path,
		Context: replyResp.Context,
	}, nil
}
