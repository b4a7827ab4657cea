// Package server provides the HTTP API for Jester.
//
// The server package implements REST endpoints using the Gin framework: the
// reply endpoint, health and info checks, cost statistics and Prometheus
// metrics.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/First008/jester/internal/composer"
	"github.com/First008/jester/pkg/telemetry"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// requestIDHeader carries the request id in both directions
const requestIDHeader = "X-Request-ID"

// shutdownTimeout bounds how long in-flight replies may finish on shutdown
const shutdownTimeout = 15 * time.Second

// Replier produces replies
type Replier interface {
	Compose(ctx context.Context, req composer.Request) (*composer.Reply, error)
}

// Info describes the running instance
type Info struct {
	Persona string `json:"persona"`
	Model   string `json:"model"`
	Version string `json:"version,omitempty"`
}

// Server is the HTTP server for Jester
type Server struct {
	replier     Replier
	costTracker *telemetry.CostTracker
	info        Info
	port        int
	logger      zerolog.Logger
	engine      *gin.Engine
}

// New creates a new HTTP server. costTracker may be nil.
func New(replier Replier, costTracker *telemetry.CostTracker, info Info, port int, logger zerolog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(requestID())
	engine.Use(ginLogger(logger))
	engine.Use(gin.Recovery())

	server := &Server{
		replier:     replier,
		costTracker: costTracker,
		info:        info,
		port:        port,
		logger:      logger,
		engine:      engine,
	}

	server.setupRoutes()

	return server
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.engine.GET("/health", s.handleHealth)
	s.engine.GET("/info", s.handleInfo)

	// Cost statistics
	s.engine.GET("/stats", s.handleStats)

	// Prometheus
	s.engine.GET("/metrics", gin.WrapH(metricsHandler()))

	s.engine.POST("/reply", s.handleReply)
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then drains in-flight requests
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info().
		Str("addr", srv.Addr).
		Str("persona", s.info.Persona).
		Str("model", s.info.Model).
		Msg("Starting HTTP server")

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info().Msg("Shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

// requestID tags every request with an id, reusing the caller's when given
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// ginLogger creates a Gin middleware that logs using zerolog
func ginLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		logger.Info().
			Str("request_id", c.GetString("request_id")).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("HTTP request")
	}
}
