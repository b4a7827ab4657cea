package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/First008/jester/internal/composer"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
)

// ToolName is the name of the reply tool
const ToolName = "get_reply"

// Replier produces replies
type Replier interface {
	Compose(ctx context.Context, req composer.Request) (*composer.Reply, error)
}

// Server wraps the MCP server for the reply pipeline
type Server struct {
	mcpServer *mcp.Server
	replier   Replier
	logger    zerolog.Logger
}

// GetReplyArgs defines the arguments for the get_reply tool
type GetReplyArgs struct {
	UserID         string `json:"user_id" jsonschema:"Stable id of the person writing the message"`
	Message        string `json:"message" jsonschema:"The message to reply to"`
	Platform       string `json:"platform,omitempty" jsonschema:"Chat platform the message came from"`
	ConversationID string `json:"conversation_id,omitempty" jsonschema:"Conversation to keep history under"`
	SafeMode       bool   `json:"safe_mode,omitempty" jsonschema:"Use the tamer voice"`
}

// New creates a new MCP server
func New(replier Replier, personaName string, logger zerolog.Logger) (*Server, error) {
	s := &Server{
		replier: replier,
		logger:  logger,
	}

	impl := &mcp.Implementation{
		Name:    fmt.Sprintf("jester-%s", strings.ToLower(personaName)),
		Version: "1.0.0",
	}

	mcpServer := mcp.NewServer(impl, nil)

	mcp.AddTool(
		mcpServer,
		&mcp.Tool{
			Name:        ToolName,
			Description: fmt.Sprintf("Get a reply from %s. Messages about crypto prices, weather or news are answered with live data.", personaName),
		},
		s.handleGetReply,
	)

	s.mcpServer = mcpServer

	logger.Info().
		Str("tool", ToolName).
		Str("persona", personaName).
		Msg("MCP server initialized")

	return s, nil
}

// ServeStdio starts the MCP server in stdio mode
func (s *Server) ServeStdio(ctx context.Context) error {
	s.logger.Info().Msg("Starting MCP server in stdio mode")

	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}

// handleGetReply handles the get_reply tool invocation
func (s *Server) handleGetReply(ctx context.Context, _ *mcp.CallToolRequest, args GetReplyArgs) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(args.UserID) == "" || strings.TrimSpace(args.Message) == "" {
		return nil, nil, fmt.Errorf("user_id and message are required")
	}

	s.logger.Info().
		Str("user_id", args.UserID).
		Str("platform", args.Platform).
		Msg("MCP tool invoked")

	reply, err := s.replier.Compose(ctx, composer.Request{
		UserID:         args.UserID,
		Message:        args.Message,
		Platform:       args.Platform,
		ConversationID: args.ConversationID,
		SafeMode:       args.SafeMode,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("reply error: %w", err)
	}

	s.logger.Info().
		Str("path", reply.Path).
		Str("model", reply.Model).
		Msg("MCP tool completed")

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: reply.Text},
		},
	}, nil, nil
}
