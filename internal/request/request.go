// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package request turns a GenerationRequest into a provider-neutral
// completion.ModelCall: model selection, reasoning budget, the ordered
// content parts, the system instruction, and the output format.
//
// Build is pure. Equal requests produce equal calls.
package request

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/pdiddy/paperviz/internal/completion"
	"github.com/pdiddy/paperviz/internal/schema"
	"github.com/pdiddy/paperviz/pkg/types"
)

// ErrInvalidRequest is returned for requests that cannot be sent.
var ErrInvalidRequest = errors.New("invalid request")

// SystemInstruction is sent with every generation.
const SystemInstruction = "You are a helpful research assistant. You MUST provide your reasoning before generating the data."

const (
	pdfPreamble  = "Analyze the attached PDF document carefully. "
	filePreamble = "Analyze this image/file. "

	// attachedContent replaces blank text when an attachment carries the
	// content, so the instruction part is never empty.
	attachedContent = "(The content is provided in the attached file.)"
)

// promptTmpl holds one named template per output kind. Each renders the
// preamble, the kind's instruction, and the content line.
var promptTmpl = template.Must(template.New("prompt").Parse(`
{{- define "SLIDES"}}{{.Preamble}}Convert the following content/file into a presentation deck. First explain your plan, then create 4-6 slides covering Intro, Method, Results, Conclusion. {{template "content" .}}{{end}}
{{- define "POSTER"}}{{.Preamble}}Summarize the following content/file into a scientific poster format. First explain what key points you selected and why. {{template "content" .}}{{end}}
{{- define "DIAGRAM"}}{{.Preamble}}Analyze the process or concepts in the following content/file and create a node-link structure. First explain the logic of the connections. {{template "content" .}}{{end}}
{{- define "CITATION_MAP"}}{{.Preamble}}Analyze the content/file and identify key concepts, authors, or related fields for a relationship map. First explain your analysis. {{template "content" .}}{{end}}
{{- define "ANALYSIS"}}{{.Preamble}}Provide a detailed analysis and explanation of the provided content (text, pdf, or image). Use Markdown formatting. {{template "content" .}}{{end}}
{{- define "content"}}

CONTENT: {{.Content}}{{end}}`))

type promptData struct {
	Preamble string
	Content  string
}

// Builder assembles model calls under a fixed model policy.
type Builder struct {
	cfg types.GenerationConfig
}

// NewBuilder returns a Builder. Zero fields in cfg take the defaults.
func NewBuilder(cfg types.GenerationConfig) *Builder {
	return &Builder{cfg: cfg.WithDefaults()}
}

// Build validates req and returns the call to send. The attachment, when
// present, is the first part; the rendered instruction is the last.
func (b *Builder) Build(req types.GenerationRequest) (completion.ModelCall, error) {
	if err := Validate(req); err != nil {
		return completion.ModelCall{}, err
	}

	sch, err := schema.Lookup(req.Kind)
	if err != nil {
		return completion.ModelCall{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	prompt, err := renderPrompt(req)
	if err != nil {
		return completion.ModelCall{}, fmt.Errorf("rendering prompt: %w", err)
	}

	parts := make([]completion.Part, 0, 2)
	if req.Attachment != nil {
		parts = append(parts, completion.BinaryPart(req.Attachment.MIMEType, req.Attachment.Data))
	}
	parts = append(parts, completion.TextPart(prompt))

	call := completion.ModelCall{
		Kind:              req.Kind,
		Model:             b.cfg.FastModel,
		SystemInstruction: SystemInstruction,
		Parts:             parts,
		Format:            completion.FormatText,
	}
	if req.UseReasoning {
		call.Model = b.cfg.ReasoningModel
		call.ReasoningBudget = b.cfg.ReasoningBudget
	}
	if sch.Structured() {
		call.Format = completion.FormatStructured
		call.Schema = sch
	}
	return call, nil
}

// Validate reports whether req can be built. Failures wrap ErrInvalidRequest.
func Validate(req types.GenerationRequest) error {
	if !req.Kind.Valid() {
		return fmt.Errorf("%w: unknown output kind %q", ErrInvalidRequest, req.Kind)
	}
	if a := req.Attachment; a != nil {
		if strings.TrimSpace(a.MIMEType) == "" {
			return fmt.Errorf("%w: attachment has no MIME type", ErrInvalidRequest)
		}
		if len(a.Data) == 0 {
			return fmt.Errorf("%w: attachment is empty", ErrInvalidRequest)
		}
	}
	if strings.TrimSpace(req.Text) == "" && req.Attachment == nil {
		return fmt.Errorf("%w: text is blank and no attachment was given", ErrInvalidRequest)
	}
	return nil
}

func renderPrompt(req types.GenerationRequest) (string, error) {
	data := promptData{Content: req.Text}
	if strings.TrimSpace(req.Text) == "" {
		data.Content = attachedContent
	}
	switch {
	case req.Attachment.IsPDF():
		data.Preamble = pdfPreamble
	case req.Attachment != nil:
		data.Preamble = filePreamble
	}

	var buf bytes.Buffer
	if err := promptTmpl.ExecuteTemplate(&buf, string(req.Kind), data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
