// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package completion

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/pdiddy/paperviz/internal/schema"
	"github.com/pdiddy/paperviz/pkg/types"
)

func sseServer(t *testing.T, lines []string, gotBody *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		if gotBody != nil {
			data, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			require.NoError(t, json.Unmarshal(data, gotBody))
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		flusher := w.(http.Flusher)
		for _, l := range lines {
			_, _ = w.Write([]byte(l + "\n\n"))
			flusher.Flush()
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func chunkLine(content, finish string) string {
	return `data: {"id":"c1","object":"chat.completion.chunk","created":1,"model":"m","choices":[{"index":0,"delta":{"content":` +
		jsonString(content) + `},"finish_reason":` + jsonString(finish) + `}]}`
}

func jsonString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func newTestOpenAI(t *testing.T, url string) *OpenAI {
	t.Helper()
	o, err := NewOpenAI(types.AIConfig{Provider: types.ProviderOpenAI, APIKey: "test-key", BaseURL: url}, zaptest.NewLogger(t))
	require.NoError(t, err)
	return o
}

func TestOpenAIStreamAccumulates(t *testing.T) {
	var body map[string]any
	srv := sseServer(t, []string{
		chunkLine("# Summary", ""),
		chunkLine("", ""),
		chunkLine("\nThe paper", ""),
		chunkLine(" argues.", "stop"),
		"data: [DONE]",
	}, &body)

	s, err := schema.Lookup(types.KindAnalysis)
	require.NoError(t, err)
	call := ModelCall{
		Kind:              types.KindAnalysis,
		Model:             "gpt-4o",
		SystemInstruction: "sys",
		Parts:             []Part{TextPart("analyze")},
		Format:            FormatText,
		Schema:            s,
	}

	got, err := collect(t, newTestOpenAI(t, srv.URL).Stream(context.Background(), call))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"# Summary",
		"# Summary\nThe paper",
		"# Summary\nThe paper argues.",
	}, got)

	assert.Equal(t, "gpt-4o", body["model"])
	assert.Nil(t, body["response_format"])
	assert.Nil(t, body["reasoning_effort"])
	msgs, ok := body["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "user", msgs[1].(map[string]any)["role"])
}

func TestOpenAIStreamContentFilter(t *testing.T) {
	srv := sseServer(t, []string{
		chunkLine("{", ""),
		chunkLine("", "content_filter"),
		"data: [DONE]",
	}, nil)

	got, err := collect(t, newTestOpenAI(t, srv.URL).Stream(context.Background(), ModelCall{Model: "m"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "content_filter")
	assert.Equal(t, []string{"{"}, got)
}

func TestOpenAIStreamHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"message":"bad key"}}`, http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	_, err := collect(t, newTestOpenAI(t, srv.URL).Stream(context.Background(), ModelCall{Model: "m"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "openai stream")
}

func TestOpenAIParamsStructured(t *testing.T) {
	s, err := schema.Lookup(types.KindPoster)
	require.NoError(t, err)

	params := openaiParams(ModelCall{
		Model:           "o3",
		Parts:           []Part{BinaryPart("application/pdf", []byte("%PDF")), TextPart("go")},
		Format:          FormatStructured,
		Schema:          s,
		ReasoningBudget: 32768,
	})

	data, err := json.Marshal(params)
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.Unmarshal(data, &body))

	assert.Equal(t, "high", body["reasoning_effort"])
	rf := body["response_format"].(map[string]any)
	assert.Equal(t, "json_schema", rf["type"])
	js := rf["json_schema"].(map[string]any)
	assert.Equal(t, "poster", js["name"])
	assert.Contains(t, string(data), `"properties":{"reasoning":`)
}

func TestOpenAIParts(t *testing.T) {
	parts := openaiParts([]Part{
		BinaryPart("image/png", []byte{0x89, 'P', 'N', 'G'}),
		BinaryPart("application/pdf", []byte("%PDF")),
		TextPart("describe"),
	})
	require.Len(t, parts, 3)

	require.NotNil(t, parts[0].OfImageURL)
	assert.True(t, strings.HasPrefix(parts[0].OfImageURL.ImageURL.URL, "data:image/png;base64,"))

	require.NotNil(t, parts[1].OfFile)
	assert.Equal(t, "attachment.pdf", parts[1].OfFile.File.Filename.Value)
	assert.True(t, strings.HasPrefix(parts[1].OfFile.File.FileData.Value, "data:application/pdf;base64,"))

	require.NotNil(t, parts[2].OfText)
	assert.Equal(t, "describe", parts[2].OfText.Text)
}

func TestNewOpenAIRequiresKey(t *testing.T) {
	_, err := NewOpenAI(types.AIConfig{Provider: types.ProviderOpenAI}, nil)
	assert.Error(t, err)
}
