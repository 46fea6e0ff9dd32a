// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package request

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paperviz/internal/completion"
	"github.com/pdiddy/paperviz/pkg/types"
)

func TestBuildModelSelection(t *testing.T) {
	b := NewBuilder(types.GenerationConfig{})

	fast, err := b.Build(types.GenerationRequest{Text: "paper", Kind: types.KindSlides})
	require.NoError(t, err)
	assert.Equal(t, types.DefaultFastModel, fast.Model)
	assert.Equal(t, int32(0), fast.ReasoningBudget)

	slow, err := b.Build(types.GenerationRequest{Text: "paper", Kind: types.KindSlides, UseReasoning: true})
	require.NoError(t, err)
	assert.Equal(t, types.DefaultReasoningModel, slow.Model)
	assert.Equal(t, int32(types.DefaultReasoningBudget), slow.ReasoningBudget)
}

func TestBuildConfiguredModels(t *testing.T) {
	b := NewBuilder(types.GenerationConfig{FastModel: "gpt-4o-mini", ReasoningModel: "o3", ReasoningBudget: 1024})

	call, err := b.Build(types.GenerationRequest{Text: "x", Kind: types.KindPoster, UseReasoning: true})
	require.NoError(t, err)
	assert.Equal(t, "o3", call.Model)
	assert.Equal(t, int32(1024), call.ReasoningBudget)
}

func TestBuildFormatPerKind(t *testing.T) {
	b := NewBuilder(types.GenerationConfig{})
	for _, kind := range types.AllKinds {
		t.Run(string(kind), func(t *testing.T) {
			call, err := b.Build(types.GenerationRequest{Text: "content", Kind: kind})
			require.NoError(t, err)
			assert.Equal(t, kind, call.Kind)
			assert.Equal(t, SystemInstruction, call.SystemInstruction)
			require.Len(t, call.Parts, 1)
			assert.True(t, strings.HasSuffix(call.Parts[0].Text, "\n\nCONTENT: content"))

			if kind == types.KindAnalysis {
				assert.Equal(t, completion.FormatText, call.Format)
				assert.Nil(t, call.Schema)
				return
			}
			assert.Equal(t, completion.FormatStructured, call.Format)
			require.NotNil(t, call.Schema)
			assert.Equal(t, kind, call.Schema.Kind)
		})
	}
}

func TestBuildPromptText(t *testing.T) {
	b := NewBuilder(types.GenerationConfig{})
	call, err := b.Build(types.GenerationRequest{Text: "Attention is all you need.", Kind: types.KindSlides})
	require.NoError(t, err)
	assert.Equal(t,
		"Convert the following content/file into a presentation deck. First explain your plan, then create 4-6 slides covering Intro, Method, Results, Conclusion. \n\nCONTENT: Attention is all you need.",
		call.Parts[0].Text)
}

func TestBuildAttachmentFirst(t *testing.T) {
	tests := []struct {
		name     string
		mime     string
		preamble string
	}{
		{name: "pdf", mime: "application/pdf", preamble: pdfPreamble},
		{name: "x-pdf", mime: "application/x-pdf", preamble: pdfPreamble},
		{name: "image", mime: "image/png", preamble: filePreamble},
	}
	b := NewBuilder(types.GenerationConfig{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := types.GenerationRequest{
				Kind:       types.KindPoster,
				Attachment: &types.Attachment{MIMEType: tt.mime, Data: []byte{1, 2, 3}},
			}
			call, err := b.Build(req)
			require.NoError(t, err)
			require.Len(t, call.Parts, 2)

			assert.True(t, call.Parts[0].IsBinary())
			assert.Equal(t, tt.mime, call.Parts[0].MIMEType)
			assert.Equal(t, []byte{1, 2, 3}, call.Parts[0].Data)

			text := call.Parts[1]
			assert.False(t, text.IsBinary())
			assert.NotEmpty(t, strings.TrimSpace(text.Text))
			assert.True(t, strings.HasPrefix(text.Text, tt.preamble))
			assert.Contains(t, text.Text, attachedContent)
		})
	}
}

func TestBuildIdempotent(t *testing.T) {
	b := NewBuilder(types.GenerationConfig{})
	req := types.GenerationRequest{
		Text:         "graph neural networks",
		Kind:         types.KindCitationMap,
		UseReasoning: true,
		Attachment:   &types.Attachment{MIMEType: "image/jpeg", Data: []byte("jpeg")},
	}
	first, err := b.Build(req)
	require.NoError(t, err)
	second, err := b.Build(req)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestBuildInvalid(t *testing.T) {
	tests := []struct {
		name string
		req  types.GenerationRequest
	}{
		{name: "blank text no attachment", req: types.GenerationRequest{Text: "  \n\t", Kind: types.KindSlides}},
		{name: "unknown kind", req: types.GenerationRequest{Text: "x", Kind: "PODCAST"}},
		{name: "empty kind", req: types.GenerationRequest{Text: "x"}},
		{name: "attachment without mime", req: types.GenerationRequest{Kind: types.KindDiagram, Attachment: &types.Attachment{Data: []byte{1}}}},
		{name: "empty attachment", req: types.GenerationRequest{Kind: types.KindDiagram, Attachment: &types.Attachment{MIMEType: "image/png"}}},
	}
	b := NewBuilder(types.GenerationConfig{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.Build(tt.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}
}
