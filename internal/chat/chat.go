// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package chat is a plain-text research assistant conversation streamed
// through the same completion service as generation.
package chat

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/paperviz/internal/completion"
	"github.com/pdiddy/paperviz/internal/generate"
	"github.com/pdiddy/paperviz/pkg/types"
)

// Session holds one conversation. History grows only on successful turns.
// A Session is not safe for concurrent use.
type Session struct {
	service completion.Service
	model   string
	logger  *zap.Logger
	history []completion.Turn
}

// NewSession starts an empty conversation on the fast model from cfg.
func NewSession(service completion.Service, cfg types.GenerationConfig, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		service: service,
		model:   cfg.WithDefaults().FastModel,
		logger:  logger,
	}
}

// History returns a copy of the conversation so far, oldest first.
func (s *Session) History() []completion.Turn {
	out := make([]completion.Turn, len(s.history))
	copy(out, s.history)
	return out
}

// Send streams the reply to message. onProgress receives the reply text so
// far after every fragment. Failures leave the history unchanged.
func (s *Session) Send(ctx context.Context, message string, onProgress generate.ProgressFunc) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", fmt.Errorf("%w: message is blank", generate.ErrInvalidRequest)
	}

	call := completion.ModelCall{
		Model:   s.model,
		History: s.History(),
		Parts:   []completion.Part{completion.TextPart(message)},
		Format:  completion.FormatText,
	}

	reply := ""
	for fragment, err := range s.service.Stream(ctx, call) {
		if err != nil {
			return "", fmt.Errorf("%w: %w", generate.ErrServiceUnavailable, err)
		}
		if ctx.Err() != nil {
			break
		}
		reply = fragment
		if onProgress != nil {
			onProgress(reply)
		}
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", generate.ErrServiceUnavailable, err)
	}

	s.history = append(s.history,
		completion.Turn{Role: completion.RoleUser, Text: message},
		completion.Turn{Role: completion.RoleModel, Text: reply})
	s.logger.Debug("chat turn",
		zap.Int("turns", len(s.history)),
		zap.Int("reply_bytes", len(reply)))
	return reply, nil
}

// Reset clears the conversation.
func (s *Session) Reset() {
	s.history = nil
}
