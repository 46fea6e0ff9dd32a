// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package completion defines the narrow contract between the generation
// pipeline and a generative-completion service, plus backends for Gemini
// and OpenAI-compatible APIs.
//
// A Service turns a ModelCall into a cancellable sequence of text
// fragments. Every fragment is the full response text received so far, so a
// consumer can always treat the latest fragment as authoritative. A non-nil
// error ends the sequence and signals a transport failure; a sequence that
// ends without an error is a completed stream.
package completion

import (
	"context"
	"fmt"
	"iter"

	"go.uber.org/zap"

	"github.com/pdiddy/paperviz/internal/schema"
	"github.com/pdiddy/paperviz/pkg/types"
)

// Format is the response format the service must produce.
type Format string

const (
	FormatStructured Format = "structured"
	FormatText       Format = "text"
)

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Part is one element of the user message: text, or binary data with a
// MIME type.
type Part struct {
	Text     string
	MIMEType string
	Data     []byte
}

// TextPart returns a text part.
func TextPart(text string) Part {
	return Part{Text: text}
}

// BinaryPart returns a binary part.
func BinaryPart(mimeType string, data []byte) Part {
	return Part{MIMEType: mimeType, Data: data}
}

// IsBinary reports whether the part carries binary data.
func (p Part) IsBinary() bool {
	return p.MIMEType != ""
}

// Turn is a previous message in a conversation.
type Turn struct {
	Role Role
	Text string
}

// ModelCall is a complete, provider-neutral request.
type ModelCall struct {
	// Kind is the output kind the call was built for.
	Kind types.OutputKind

	// Model is the provider's model identifier.
	Model string

	// SystemInstruction is the system prompt.
	SystemInstruction string

	// History holds earlier conversation turns, oldest first.
	History []Turn

	// Parts is the user message; binary parts precede the instruction text.
	Parts []Part

	// Format selects structured JSON or plain text output.
	Format Format

	// Schema constrains structured output. Nil when Format is FormatText.
	Schema *schema.Schema

	// ReasoningBudget is the number of reasoning tokens; zero disables it.
	ReasoningBudget int32
}

// Service is a generative-completion backend.
type Service interface {
	Stream(ctx context.Context, call ModelCall) iter.Seq2[string, error]
}

// New returns the backend selected by cfg.Provider. An empty provider
// selects Gemini.
func New(ctx context.Context, cfg types.AIConfig, logger *zap.Logger) (Service, error) {
	switch cfg.Provider {
	case "", types.ProviderGemini:
		return NewGemini(ctx, cfg, logger)
	case types.ProviderOpenAI:
		return NewOpenAI(cfg, logger)
	}
	return nil, fmt.Errorf("unknown ai provider %q: use gemini or openai", cfg.Provider)
}
