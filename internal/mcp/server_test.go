package mcpserver

import (
	"context"
	"errors"
	"testing"

	"github.com/First008/jester/internal/composer"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
)

type stubReplier struct {
	reply *composer.Reply
	err   error
	last  composer.Request
}

func (s *stubReplier) Compose(_ context.Context, req composer.Request) (*composer.Reply, error) {
	s.last = req
	if s.err != nil {
		return nil, s.err
	}
	return s.reply, nil
}

func TestGetReply(t *testing.T) {
	replier := &stubReplier{reply: &composer.Reply{Text: "sunny and smug", Path: "enhanced"}}
	s, err := New(replier, "Jester", zerolog.Nop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	result, _, err := s.handleGetReply(context.Background(), nil, GetReplyArgs{
		UserID:   "u1",
		Message:  "weather in Paris?",
		Platform: "slack",
	})
	if err != nil {
		t.Fatalf("handleGetReply failed: %v", err)
	}

	if len(result.Content) != 1 {
		t.Fatalf("Expected 1 content item, got %d", len(result.Content))
	}
	text, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("Expected text content, got %T", result.Content[0])
	}
	if text.Text != "sunny and smug" {
		t.Errorf("Expected reply text, got '%s'", text.Text)
	}
	if replier.last.Message != "weather in Paris?" || replier.last.Platform != "slack" {
		t.Errorf("Expected args passed through, got %+v", replier.last)
	}
}

func TestGetReply_MissingArgs(t *testing.T) {
	replier := &stubReplier{reply: &composer.Reply{Text: "unused"}}
	s, _ := New(replier, "Jester", zerolog.Nop())

	if _, _, err := s.handleGetReply(context.Background(), nil, GetReplyArgs{Message: "hi"}); err == nil {
		t.Error("Expected error without user_id")
	}
	if _, _, err := s.handleGetReply(context.Background(), nil, GetReplyArgs{UserID: "u1", Message: "  "}); err == nil {
		t.Error("Expected error for blank message")
	}
}

func TestGetReply_ReplierError(t *testing.T) {
	s, _ := New(&stubReplier{err: composer.ErrAssistantUnavailable}, "Jester", zerolog.Nop())

	_, _, err := s.handleGetReply(context.Background(), nil, GetReplyArgs{UserID: "u1", Message: "hi"})
	if !errors.Is(err, composer.ErrAssistantUnavailable) {
		t.Errorf("Expected wrapped ErrAssistantUnavailable, got %v", err)
	}
}
