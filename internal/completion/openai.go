// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package completion

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"go.uber.org/zap"

	"github.com/pdiddy/paperviz/pkg/types"
)

var _ Service = (*OpenAI)(nil)

// OpenAI streams completions from an OpenAI-compatible chat completions
// endpoint. BaseURL in the config points it at a gateway.
type OpenAI struct {
	client openai.Client
	logger *zap.Logger
}

// NewOpenAI creates an OpenAI backend from cfg.
func NewOpenAI(cfg types.AIConfig, logger *zap.Logger) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai api key missing; set ai.api_key or .secrets/openai-api-key")
	}
	// Failures surface to the caller unretried.
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey), option.WithMaxRetries(0)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OpenAI{client: openai.NewClient(opts...), logger: logger}, nil
}

// Stream implements Service.
func (o *OpenAI) Stream(ctx context.Context, call ModelCall) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		params := openaiParams(call)

		o.logger.Debug("openai stream start",
			zap.String("model", call.Model),
			zap.String("kind", string(call.Kind)),
			zap.Bool("reasoning", call.ReasoningBudget > 0),
			zap.Int("parts", len(call.Parts)))

		stream := o.client.Chat.Completions.NewStreaming(ctx, params)
		defer stream.Close()

		var sb strings.Builder
		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}
			choice := chunk.Choices[0]
			if choice.Delta.Refusal != "" {
				yield("", fmt.Errorf("openai stream refused: %s", choice.Delta.Refusal))
				return
			}
			if choice.FinishReason == "content_filter" {
				yield("", errors.New("openai stream blocked: finish reason content_filter"))
				return
			}
			if choice.Delta.Content == "" {
				continue
			}
			sb.WriteString(choice.Delta.Content)
			if !yield(sb.String(), nil) {
				return
			}
		}
		if err := stream.Err(); err != nil {
			yield("", fmt.Errorf("openai stream: %w", err))
		}
	}
}

func openaiParams(call ModelCall) openai.ChatCompletionNewParams {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(call.History)+2)
	if call.SystemInstruction != "" {
		msgs = append(msgs, openai.SystemMessage(call.SystemInstruction))
	}
	for _, t := range call.History {
		if t.Role == RoleModel {
			msgs = append(msgs, openai.AssistantMessage(t.Text))
			continue
		}
		msgs = append(msgs, openai.UserMessage(t.Text))
	}
	msgs = append(msgs, openai.ChatCompletionMessageParamUnion{
		OfUser: &openai.ChatCompletionUserMessageParam{
			Content: openai.ChatCompletionUserMessageParamContentUnion{
				OfArrayOfContentParts: openaiParts(call.Parts),
			},
		},
	})

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(call.Model),
		Messages: msgs,
	}
	if call.ReasoningBudget > 0 {
		params.ReasoningEffort = shared.ReasoningEffortHigh
	}
	if call.Format == FormatStructured && call.Schema != nil && call.Schema.Root != nil {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   call.Schema.Name,
					Schema: call.Schema.Root,
					Strict: openai.Bool(false),
				},
			},
		}
	}
	return params
}

func openaiParts(parts []Part) []openai.ChatCompletionContentPartUnionParam {
	out := make([]openai.ChatCompletionContentPartUnionParam, 0, len(parts))
	for _, p := range parts {
		if !p.IsBinary() {
			out = append(out, openai.TextContentPart(p.Text))
			continue
		}
		url := dataURL(p.MIMEType, p.Data)
		if strings.HasPrefix(p.MIMEType, "image/") {
			out = append(out, openai.ChatCompletionContentPartUnionParam{
				OfImageURL: &openai.ChatCompletionContentPartImageParam{
					ImageURL: openai.ChatCompletionContentPartImageImageURLParam{URL: url},
				},
			})
			continue
		}
		out = append(out, openai.ChatCompletionContentPartUnionParam{
			OfFile: &openai.ChatCompletionContentPartFileParam{
				File: openai.ChatCompletionContentPartFileFileParam{
					FileData: openai.String(url),
					Filename: openai.String(attachmentName(p.MIMEType)),
				},
			},
		})
	}
	return out
}

func dataURL(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func attachmentName(mimeType string) string {
	if mimeType == "application/pdf" || mimeType == "application/x-pdf" {
		return "attachment.pdf"
	}
	return "attachment"
}
