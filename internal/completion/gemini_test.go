// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package completion

import (
	"context"
	"errors"
	"iter"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/genai"

	"github.com/pdiddy/paperviz/internal/schema"
	"github.com/pdiddy/paperviz/pkg/types"
)

type fakeGeminiModels struct {
	chunks []*genai.GenerateContentResponse
	err    error

	gotModel    string
	gotContents []*genai.Content
	gotConfig   *genai.GenerateContentConfig
}

func (f *fakeGeminiModels) GenerateContentStream(_ context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error] {
	f.gotModel = model
	f.gotContents = contents
	f.gotConfig = cfg
	return func(yield func(*genai.GenerateContentResponse, error) bool) {
		for _, c := range f.chunks {
			if !yield(c, nil) {
				return
			}
		}
		if f.err != nil {
			yield(nil, f.err)
		}
	}
}

func textChunk(parts ...*genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Role: "model", Parts: parts}}},
	}
}

func collect(t *testing.T, seq iter.Seq2[string, error]) ([]string, error) {
	t.Helper()
	var got []string
	for s, err := range seq {
		if err != nil {
			return got, err
		}
		got = append(got, s)
	}
	return got, nil
}

func TestGeminiStreamAccumulates(t *testing.T) {
	fake := &fakeGeminiModels{chunks: []*genai.GenerateContentResponse{
		textChunk(genai.NewPartFromText(`{"reasoning":`)),
		textChunk(&genai.Part{Text: "planning the deck", Thought: true}),
		textChunk(genai.NewPartFromText(`"x",`), genai.NewPartFromText(`"slides":[]}`)),
		{},
	}}
	g := &Gemini{models: fake, logger: zaptest.NewLogger(t)}

	got, err := collect(t, g.Stream(context.Background(), ModelCall{Model: "gemini-2.5-flash"}))
	require.NoError(t, err)
	assert.Equal(t, []string{
		`{"reasoning":`,
		`{"reasoning":"x","slides":[]}`,
	}, got)
	assert.Equal(t, "gemini-2.5-flash", fake.gotModel)
}

func TestGeminiStreamTransportError(t *testing.T) {
	fake := &fakeGeminiModels{
		chunks: []*genai.GenerateContentResponse{textChunk(genai.NewPartFromText("partial"))},
		err:    errors.New("connection reset"),
	}
	g := &Gemini{models: fake, logger: zaptest.NewLogger(t)}

	got, err := collect(t, g.Stream(context.Background(), ModelCall{}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Equal(t, []string{"partial"}, got)
}

func TestGeminiStreamBlockedFinishReason(t *testing.T) {
	blocked := textChunk()
	blocked.Candidates[0].FinishReason = genai.FinishReasonSafety
	fake := &fakeGeminiModels{chunks: []*genai.GenerateContentResponse{blocked}}
	g := &Gemini{models: fake, logger: zaptest.NewLogger(t)}

	_, err := collect(t, g.Stream(context.Background(), ModelCall{}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blocked")
}

func TestGeminiFinishError(t *testing.T) {
	assert.NoError(t, geminiFinishError(""))
	assert.NoError(t, geminiFinishError(genai.FinishReasonStop))
	assert.NoError(t, geminiFinishError(genai.FinishReasonMaxTokens))
	assert.Error(t, geminiFinishError(genai.FinishReasonRecitation))
	assert.Error(t, geminiFinishError(genai.FinishReasonProhibitedContent))
}

func TestGeminiContents(t *testing.T) {
	call := ModelCall{
		History: []Turn{
			{Role: RoleUser, Text: "hi"},
			{Role: RoleModel, Text: "hello"},
		},
		Parts: []Part{
			BinaryPart("application/pdf", []byte("%PDF-1.7")),
			TextPart("summarize"),
		},
	}

	contents := geminiContents(call)
	require.Len(t, contents, 3)
	assert.Equal(t, "user", contents[0].Role)
	assert.Equal(t, "model", contents[1].Role)
	assert.Equal(t, "hello", contents[1].Parts[0].Text)

	last := contents[2]
	assert.Equal(t, "user", last.Role)
	require.Len(t, last.Parts, 2)
	require.NotNil(t, last.Parts[0].InlineData)
	assert.Equal(t, "application/pdf", last.Parts[0].InlineData.MIMEType)
	assert.Equal(t, []byte("%PDF-1.7"), last.Parts[0].InlineData.Data)
	assert.Equal(t, "summarize", last.Parts[1].Text)
}

func TestGeminiConfigStructured(t *testing.T) {
	s, err := schema.Lookup(types.KindDiagram)
	require.NoError(t, err)

	cfg := geminiConfig(ModelCall{
		SystemInstruction: "be helpful",
		Format:            FormatStructured,
		Schema:            s,
		ReasoningBudget:   32768,
	})

	assert.Equal(t, "application/json", cfg.ResponseMIMEType)
	require.NotNil(t, cfg.ThinkingConfig)
	require.NotNil(t, cfg.ThinkingConfig.ThinkingBudget)
	assert.Equal(t, int32(32768), *cfg.ThinkingConfig.ThinkingBudget)
	require.NotNil(t, cfg.SystemInstruction)
	assert.Equal(t, "be helpful", cfg.SystemInstruction.Parts[0].Text)

	rs := cfg.ResponseSchema
	require.NotNil(t, rs)
	assert.Equal(t, genai.TypeObject, rs.Type)
	assert.Equal(t, schema.ReasoningField, rs.PropertyOrdering[0])
	assert.ElementsMatch(t, []string{"reasoning", "title", "nodes", "links"}, rs.Required)

	nodes := rs.Properties["nodes"]
	require.NotNil(t, nodes)
	assert.Equal(t, genai.TypeArray, nodes.Type)
	assert.Equal(t, []string{"primary", "secondary"}, nodes.Items.Properties["type"].Enum)
}

func TestGeminiConfigText(t *testing.T) {
	s, err := schema.Lookup(types.KindAnalysis)
	require.NoError(t, err)

	cfg := geminiConfig(ModelCall{Format: FormatText, Schema: s})
	assert.Equal(t, "text/plain", cfg.ResponseMIMEType)
	assert.Nil(t, cfg.ResponseSchema)
	assert.Equal(t, int32(0), *cfg.ThinkingConfig.ThinkingBudget)
}

func TestNewGeminiRequiresKey(t *testing.T) {
	_, err := NewGemini(context.Background(), types.AIConfig{Provider: types.ProviderGemini}, nil)
	assert.Error(t, err)
}
