package server

import (
	"errors"
	"net/http"

	"github.com/First008/jester/internal/composer"
	"github.com/First008/jester/internal/enhancer"
	"github.com/First008/jester/pkg/telemetry"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ReplyRequest is the request body for the /reply endpoint
type ReplyRequest struct {
	UserID         string `json:"user_id" binding:"required"`
	Message        string `json:"message" binding:"required"`
	Platform       string `json:"platform"`
	ConversationID string `json:"conversation_id"`
	SafeMode       bool   `json:"safe_mode"`
}

// ReplyResponse is the response body for the /reply endpoint
type ReplyResponse struct {
	Reply     string           `json:"reply"`
	RequestID string           `json:"request_id"`
	Model     string           `json:"model,omitempty"`
	Path      string           `json:"path"`
	Context   *enhancer.Bundle `json:"context,omitempty"`
}

// ErrorResponse is the response body for errors
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// handleReply handles POST /reply requests
func (s *Server) handleReply(c *gin.Context) {
	requestID := c.GetString("request_id")

	var req ReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:     "Invalid request: " + err.Error(),
			RequestID: requestID,
		})
		return
	}

	reply, err := s.replier.Compose(c.Request.Context(), composer.Request{
		UserID:         req.UserID,
		Message:        req.Message,
		Platform:       req.Platform,
		ConversationID: req.ConversationID,
		SafeMode:       req.SafeMode,
	})
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("request_id", requestID).
			Str("user_id", req.UserID).
			Msg("Reply failed")
		status := http.StatusInternalServerError
		if errors.Is(err, composer.ErrAssistantUnavailable) {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, ErrorResponse{
			Error:     "Assistant unavailable",
			RequestID: requestID,
		})
		return
	}

	c.JSON(http.StatusOK, ReplyResponse{
		Reply:     reply.Text,
		RequestID: requestID,
		Model:     reply.Model,
		Path:      reply.Path,
		Context:   reply.Context,
	})
}

// HealthResponse is the response body for /health
type HealthResponse struct {
	Status string `json:"status"`
	Model  string `json:"model"`
}

// handleHealth handles GET /health requests
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status: "healthy",
		Model:  s.info.Model,
	})
}

// handleInfo handles GET /info requests
func (s *Server) handleInfo(c *gin.Context) {
	c.JSON(http.StatusOK, s.info)
}

// StatsResponse is the response body for /stats
type StatsResponse struct {
	Daily telemetry.DailyStats `json:"daily"`
	Total telemetry.TotalStats `json:"total"`
}

// handleStats handles GET /stats requests
func (s *Server) handleStats(c *gin.Context) {
	if s.costTracker == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "cost tracking disabled"})
		return
	}

	c.JSON(http.StatusOK, StatsResponse{
		Daily: s.costTracker.GetDailyStats(),
		Total: s.costTracker.GetTotalStats(),
	})
}

func metricsHandler() http.Handler {
	return promhttp.Handler()
}
