// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package completion

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/pdiddy/paperviz/pkg/types"
)

// geminiModels is the subset of *genai.Models the backend uses. Tests
// substitute a fake.
type geminiModels interface {
	GenerateContentStream(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error]
}

var _ Service = (*Gemini)(nil)

// Gemini streams completions from the Google Gemini API.
type Gemini struct {
	models geminiModels
	logger *zap.Logger
}

// NewGemini creates a Gemini backend from cfg.
func NewGemini(ctx context.Context, cfg types.AIConfig, logger *zap.Logger) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini api key missing; set ai.api_key or .secrets/gemini-api-key")
	}
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gemini{models: client.Models, logger: logger}, nil
}

// Stream implements Service.
func (g *Gemini) Stream(ctx context.Context, call ModelCall) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		contents := geminiContents(call)
		cfg := geminiConfig(call)

		g.logger.Debug("gemini stream start",
			zap.String("model", call.Model),
			zap.String("kind", string(call.Kind)),
			zap.Int32("reasoning_budget", call.ReasoningBudget),
			zap.Int("parts", len(call.Parts)))

		var sb strings.Builder
		for chunk, err := range g.models.GenerateContentStream(ctx, call.Model, contents, cfg) {
			if err != nil {
				yield("", fmt.Errorf("gemini stream: %w", err))
				return
			}
			if len(chunk.Candidates) == 0 {
				continue
			}
			cand := chunk.Candidates[0]
			if err := geminiFinishError(cand.FinishReason); err != nil {
				yield("", err)
				return
			}
			delta := geminiText(cand)
			if delta == "" {
				continue
			}
			sb.WriteString(delta)
			if !yield(sb.String(), nil) {
				return
			}
		}
	}
}

// geminiText concatenates the visible text of a candidate, skipping
// thought parts.
func geminiText(c *genai.Candidate) string {
	if c.Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, p := range c.Content.Parts {
		if p == nil || p.Thought || p.Text == "" {
			continue
		}
		sb.WriteString(p.Text)
	}
	return sb.String()
}

// geminiFinishError maps terminal finish reasons that carry no usable
// output to a transport error. STOP and MAX_TOKENS pass through; a
// truncated structured response fails later, at decode time.
func geminiFinishError(reason genai.FinishReason) error {
	switch reason {
	case genai.FinishReasonSafety,
		genai.FinishReasonRecitation,
		genai.FinishReasonBlocklist,
		genai.FinishReasonProhibitedContent,
		genai.FinishReasonSPII:
		return fmt.Errorf("gemini stream blocked: finish reason %s", reason)
	}
	return nil
}

func geminiContents(call ModelCall) []*genai.Content {
	contents := make([]*genai.Content, 0, len(call.History)+1)
	for _, t := range call.History {
		role := "user"
		if t.Role == RoleModel {
			role = "model"
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{genai.NewPartFromText(t.Text)},
		})
	}

	parts := make([]*genai.Part, 0, len(call.Parts))
	for _, p := range call.Parts {
		if p.IsBinary() {
			parts = append(parts, genai.NewPartFromBytes(p.Data, p.MIMEType))
			continue
		}
		parts = append(parts, genai.NewPartFromText(p.Text))
	}
	return append(contents, &genai.Content{Role: "user", Parts: parts})
}

func geminiConfig(call ModelCall) *genai.GenerateContentConfig {
	budget := call.ReasoningBudget
	cfg := &genai.GenerateContentConfig{
		ThinkingConfig: &genai.ThinkingConfig{ThinkingBudget: &budget},
	}
	if call.SystemInstruction != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{genai.NewPartFromText(call.SystemInstruction)},
		}
	}
	if call.Format == FormatStructured && call.Schema != nil && call.Schema.Root != nil {
		cfg.ResponseMIMEType = "application/json"
		cfg.ResponseSchema = geminiSchema(call.Schema.Root)
		cfg.ResponseSchema.PropertyOrdering = call.Schema.Ordering
	} else {
		cfg.ResponseMIMEType = "text/plain"
	}
	return cfg
}

func geminiSchema(s *jsonschema.Schema) *genai.Schema {
	if s == nil {
		return nil
	}

	gs := &genai.Schema{
		Description: s.Description,
		Items:       geminiSchema(s.Items),
		Required:    s.Required,
	}
	for _, v := range s.Enum {
		gs.Enum = append(gs.Enum, fmt.Sprintf("%v", v))
	}
	if len(s.Properties) > 0 {
		gs.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for k, prop := range s.Properties {
			gs.Properties[k] = geminiSchema(prop)
		}
	}
	switch s.Type {
	case "object":
		gs.Type = genai.TypeObject
	case "array":
		gs.Type = genai.TypeArray
	case "string":
		gs.Type = genai.TypeString
	case "number":
		gs.Type = genai.TypeNumber
	case "integer":
		gs.Type = genai.TypeInteger
	case "boolean":
		gs.Type = genai.TypeBoolean
	}
	return gs
}
