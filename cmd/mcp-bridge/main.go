package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/First008/jester/internal/client"
	mcpserver "github.com/First008/jester/internal/mcp"
	"github.com/rs/zerolog"
)

// Serves get_reply over MCP stdio, forwarding each call to a running Jester
// HTTP server.
func main() {
	jesterURL := flag.String("jester-url", "http://localhost:8080", "URL of the Jester HTTP server")
	personaName := flag.String("persona", "Jester", "Persona name shown to the MCP client")
	timeout := flag.Duration("timeout", client.DefaultTimeout, "Timeout for one remote reply")
	flag.Parse()

	// Setup logger
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().
		Timestamp().
		Logger()

	logger.Info().
		Str("jester_url", *jesterURL).
		Msg("Starting MCP-to-HTTP bridge")

	replier := client.NewHTTPReplier(*jesterURL, *timeout, logger)

	mcpServer, err := mcpserver.New(replier, *personaName, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create MCP server")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := mcpServer.ServeStdio(ctx); err != nil {
		logger.Error().Err(err).Msg("MCP server failed")
	}
}
