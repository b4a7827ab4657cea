// Package composer turns a user message into a reply, enriching it with
// live data when the message asks for some.
//
// GetReply runs detect, enhance and compose for one message. Live data is
// written twice: as an annotation on the message and as an instruction block
// on the prompt. Both are local to the call. Any failure while enhancing or
// replying with live data falls back to a plain reply to the original
// message; only a failure of that plain reply reaches the caller.
package composer

import (
	"context"
	"errors"
	"fmt"

	"github.com/First008/jester/internal/assistant"
	"github.com/First008/jester/internal/enhancer"
	"github.com/First008/jester/internal/llm"
	"github.com/First008/jester/internal/persona"
	"github.com/First008/jester/pkg/telemetry"
	"github.com/rs/zerolog"
)

// ErrAssistantUnavailable means no reply could be produced at all
var ErrAssistantUnavailable = errors.New("assistant unavailable")

// ContextEnhancer supplies live data for a message
type ContextEnhancer interface {
	Enhance(ctx context.Context, utterance, userID, platform string) *enhancer.Bundle
}

// Request is one incoming message
type Request struct {
	UserID         string `json:"user_id"`
	Message        string `json:"message"`
	Platform       string `json:"platform"`
	ConversationID string `json:"conversation_id,omitempty"`
	SafeMode       bool   `json:"safe_mode"`
}

// Reply is the composed answer
type Reply struct {
	Text  string `json:"reply"`
	Model string `json:"model,omitempty"`

	// Path is how the reply was produced: plain, enhanced or fallback
	Path string `json:"path"`

	// Context is the live data the reply was built on, nil for plain replies
	Context *enhancer.Bundle `json:"context,omitempty"`
}

// Composer produces replies
type Composer struct {
	enhancer  ContextEnhancer
	assistant assistant.Assistant
	persona   *persona.Persona
	logger    zerolog.Logger
}

// New creates a composer
func New(enh ContextEnhancer, a assistant.Assistant, p *persona.Persona, logger zerolog.Logger) *Composer {
	return &Composer{
		enhancer:  enh,
		assistant: a,
		persona:   p,
		logger:    logger,
	}
}

// GetReply returns the reply text for a message
func (c *Composer) GetReply(ctx context.Context, req Request) (string, error) {
	reply, err := c.Compose(ctx, req)
	if err != nil {
		return "", err
	}
	return reply.Text, nil
}

// Compose returns the reply for a message along with how it was produced
func (c *Composer) Compose(ctx context.Context, req Request) (*Reply, error) {
	logger := c.logger.With().
		Str("user_id", req.UserID).
		Str("platform", req.Platform).
		Logger()

	bundle, err := c.enhance(ctx, req)
	if err != nil {
		logger.Error().Err(err).Msg("Enhancement failed, replying without live data")
		return c.plain(ctx, req, telemetry.PathFallback)
	}

	if bundle.Empty() {
		return c.plain(ctx, req, telemetry.PathPlain)
	}

	reply, err := c.enhanced(ctx, req, bundle)
	if err != nil {
		logger.Error().Err(err).Msg("Enhanced reply failed, falling back to plain reply")
		return c.plain(ctx, req, telemetry.PathFallback)
	}

	telemetry.RepliesTotal.WithLabelValues(telemetry.PathEnhanced).Inc()
	return reply, nil
}

// enhance runs the enhancer, turning a panic into an error
func (c *Composer) enhance(ctx context.Context, req Request) (bundle *enhancer.Bundle, err error) {
	defer func() {
		if r := recover(); r != nil {
			bundle = nil
			err = fmt.Errorf("enhancer panic: %v", r)
		}
	}()

	return c.enhancer.Enhance(ctx, req.Message, req.UserID, req.Platform), nil
}

// enhanced invokes the assistant with the annotated message and injected prompt
func (c *Composer) enhanced(ctx context.Context, req Request, bundle *enhancer.Bundle) (reply *Reply, err error) {
	defer func() {
		if r := recover(); r != nil {
			reply = nil
			err = fmt.Errorf("compose panic: %v", r)
		}
	}()

	call := c.request(req)
	call.Annotation = persona.Annotation(bundle)
	call.Prompt = llm.Prompt{
		Persona: c.persona.SystemPrompt(req.SafeMode, req.Platform),
		Context: persona.InjectionBlock(bundle),
	}

	response, err := c.assistant.Invoke(ctx, call)
	if err != nil {
		return nil, err
	}

	return &Reply{
		Text:    response.Content,
		Model:   response.Model,
		Path:    telemetry.PathEnhanced,
		Context: bundle,
	}, nil
}

// plain delegates the original message unmodified
func (c *Composer) plain(ctx context.Context, req Request, path string) (*Reply, error) {
	response, err := c.assistant.Invoke(ctx, c.request(req))
	if err != nil {
		telemetry.RepliesTotal.WithLabelValues(telemetry.PathFailed).Inc()
		return nil, fmt.Errorf("%w: %w", ErrAssistantUnavailable, err)
	}

	telemetry.RepliesTotal.WithLabelValues(path).Inc()
	return &Reply{
		Text:  response.Content,
		Model: response.Model,
		Path:  path,
	}, nil
}

func (c *Composer) request(req Request) assistant.Request {
	return assistant.Request{
		UserID:         req.UserID,
		Message:        req.Message,
		Platform:       req.Platform,
		ConversationID: req.ConversationID,
		SafeMode:       req.SafeMode,
	}
}
