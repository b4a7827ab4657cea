package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/First008/jester/internal/config"
	"github.com/First008/jester/internal/factory"
	mcpserver "github.com/First008/jester/internal/mcp"
	"github.com/First008/jester/internal/server"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	envPath := flag.String("env", ".env", "Optional dotenv file with API keys")
	flag.Parse()

	// Check mode (HTTP or MCP stdio)
	mode := os.Getenv("MODE")
	if mode == "" {
		mode = "http"
	}

	// stdout belongs to the protocol in MCP mode
	logger := setupLogger(mode == "mcp")

	if err := godotenv.Load(*envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn().Err(err).Str("path", *envPath).Msg("Failed to load env file")
	}

	logger.Info().
		Str("config", *configPath).
		Str("mode", mode).
		Msg("Starting Jester")

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pipeline, err := factory.NewPipeline(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create reply pipeline")
	}
	defer func() {
		if err := pipeline.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close pipeline")
		}
	}()

	switch mode {
	case "mcp":
		err = runMCP(ctx, pipeline, logger)
	case "http":
		err = runHTTP(ctx, pipeline, cfg.Port, logger)
	default:
		logger.Error().Str("mode", mode).Msg("Unknown mode. Use 'http' or 'mcp'")
		return
	}

	if err != nil {
		logger.Error().Err(err).Msg("Jester stopped with error")
	}
}

// runHTTP serves the REST API until ctx is cancelled
func runHTTP(ctx context.Context, p *factory.Pipeline, port int, logger zerolog.Logger) error {
	srv := server.New(p.Composer, p.CostTracker, server.Info{
		Persona: p.Persona.Name,
		Model:   p.Assistant.GetModel(),
	}, port, logger)

	return srv.Run(ctx)
}

// runMCP serves the get_reply tool over stdio
func runMCP(ctx context.Context, p *factory.Pipeline, logger zerolog.Logger) error {
	mcpServer, err := mcpserver.New(p.Composer, p.Persona.Name, logger)
	if err != nil {
		return err
	}

	return mcpServer.ServeStdio(ctx)
}

// setupLogger configures zerolog
func setupLogger(stderr bool) zerolog.Logger {
	out := os.Stdout
	if stderr {
		out = os.Stderr
	}

	// Pretty console output
	output := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
	}

	logger := zerolog.New(output).
		With().
		Timestamp().
		Logger()

	// Set log level from environment
	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	return logger
}
