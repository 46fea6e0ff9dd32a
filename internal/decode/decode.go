// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package decode accumulates a streamed completion and, once the stream
// ends, parses and validates it into a typed document.
//
// A Decoder belongs to one generation. Feed replaces the transcript with the
// latest cumulative fragment and does no parsing; Finalize parses once and
// either returns a complete document or fails. Partial documents are never
// returned.
package decode

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/pdiddy/paperviz/internal/schema"
	"github.com/pdiddy/paperviz/pkg/types"
)

var (
	// ErrMalformedOutput means the finished transcript is empty, is not
	// JSON, or does not match the kind's schema.
	ErrMalformedOutput = errors.New("malformed output")

	// ErrFinalized is returned by a second call to Finalize.
	ErrFinalized = errors.New("decoder already finalized")
)

// Error carries the kind and raw transcript of a failed decode.
type Error struct {
	Kind types.OutputKind
	Raw  string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("decoding %s output: %v", e.Kind, e.Err)
}

// Unwrap exposes both ErrMalformedOutput and the underlying cause.
func (e *Error) Unwrap() []error {
	return []error{ErrMalformedOutput, e.Err}
}

// SlideDeck is the envelope the model returns for SLIDES.
type SlideDeck struct {
	Reasoning string        `json:"reasoning"`
	Slides    []types.Slide `json:"slides"`
}

// Document is a decoded transcript. Exactly one payload field is set.
type Document struct {
	Kind types.OutputKind
	Raw  string

	Slides   *SlideDeck
	Poster   *types.Poster
	Diagram  *types.Diagram
	Analysis *types.Analysis
}

// Reasoning returns the model's stated reasoning, or "" for Analysis.
func (d *Document) Reasoning() string {
	switch {
	case d.Slides != nil:
		return d.Slides.Reasoning
	case d.Poster != nil:
		return d.Poster.Reasoning
	case d.Diagram != nil:
		return d.Diagram.Reasoning
	}
	return ""
}

// Decoder holds the stream state for one generation.
type Decoder struct {
	kind  types.OutputKind
	text  string
	final bool
}

// New returns a Decoder for kind.
func New(kind types.OutputKind) *Decoder {
	return &Decoder{kind: kind}
}

// Kind returns the output kind being decoded.
func (d *Decoder) Kind() types.OutputKind {
	return d.kind
}

// Feed records fragment as the current transcript. Fragments are cumulative,
// so the latest one replaces whatever came before.
func (d *Decoder) Feed(fragment string) {
	if d.final {
		return
	}
	d.text = fragment
}

// Text returns the current transcript.
func (d *Decoder) Text() string {
	return d.text
}

// Finalize parses the transcript. It may be called once.
func (d *Decoder) Finalize() (*Document, error) {
	if d.final {
		return nil, ErrFinalized
	}
	d.final = true

	sch, err := schema.Lookup(d.kind)
	if err != nil {
		return nil, d.fail(err)
	}

	doc := &Document{Kind: d.kind, Raw: d.text}
	if !sch.Structured() {
		doc.Analysis = &types.Analysis{Markdown: d.text}
		return doc, nil
	}

	if strings.TrimSpace(d.text) == "" {
		return nil, d.fail(errors.New("empty response"))
	}

	var generic any
	if err := json.Unmarshal([]byte(d.text), &generic); err != nil {
		return nil, d.fail(fmt.Errorf("parsing JSON: %w", err))
	}
	if err := sch.Validate(generic); err != nil {
		return nil, d.fail(err)
	}

	var target any
	switch d.kind {
	case types.KindSlides:
		doc.Slides = &SlideDeck{}
		target = doc.Slides
	case types.KindPoster:
		doc.Poster = &types.Poster{}
		target = doc.Poster
	case types.KindDiagram, types.KindCitationMap:
		doc.Diagram = &types.Diagram{}
		target = doc.Diagram
	}
	if err := json.Unmarshal([]byte(d.text), target); err != nil {
		return nil, d.fail(fmt.Errorf("decoding %s: %w", d.kind, err))
	}
	return doc, nil
}

func (d *Decoder) fail(err error) error {
	return &Error{Kind: d.kind, Raw: d.text, Err: err}
}
