// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"strings"
)

// OutputKind selects the document a generation produces. It determines the
// schema, the prompt template, and the result shape.
type OutputKind string

const (
	KindSlides      OutputKind = "SLIDES"
	KindPoster      OutputKind = "POSTER"
	KindDiagram     OutputKind = "DIAGRAM"
	KindCitationMap OutputKind = "CITATION_MAP"
	KindAnalysis    OutputKind = "ANALYSIS"
)

// AllKinds lists every OutputKind in display order.
var AllKinds = []OutputKind{KindSlides, KindPoster, KindDiagram, KindCitationMap, KindAnalysis}

// Valid reports whether k is one of the defined kinds.
func (k OutputKind) Valid() bool {
	for _, known := range AllKinds {
		if k == known {
			return true
		}
	}
	return false
}

// Structured reports whether the kind is decoded from JSON. Analysis is the
// only free-text kind.
func (k OutputKind) Structured() bool {
	return k.Valid() && k != KindAnalysis
}

// Flag returns the lower-case, hyphenated spelling used on the command line
// (e.g. "citation-map").
func (k OutputKind) Flag() string {
	return strings.ReplaceAll(strings.ToLower(string(k)), "_", "-")
}

// ParseOutputKind accepts either the wire name ("CITATION_MAP") or the flag
// spelling ("citation-map").
func ParseOutputKind(s string) (OutputKind, error) {
	norm := OutputKind(strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_")))
	if !norm.Valid() {
		return "", fmt.Errorf("unknown output kind %q: use slides, poster, diagram, citation-map, or analysis", s)
	}
	return norm, nil
}

// Attachment is a binary file (PDF or image) sent alongside the prompt.
// The MIME type is trusted as given.
type Attachment struct {
	// MIMEType is the IANA media type, e.g. "application/pdf" or "image/png".
	MIMEType string `json:"mime_type" yaml:"mime_type"`

	// Data is the raw file content.
	Data []byte `json:"-" yaml:"-"`
}

// IsPDF reports whether the attachment is a PDF-like document.
func (a *Attachment) IsPDF() bool {
	if a == nil {
		return false
	}
	switch strings.ToLower(a.MIMEType) {
	case "application/pdf", "application/x-pdf":
		return true
	}
	return false
}

// GenerationRequest is one caller request. It is built by the caller and
// never modified by the pipeline.
type GenerationRequest struct {
	// Text is the user's content. May be blank only when Attachment is set.
	Text string `json:"text" yaml:"text"`

	// Attachment is an optional PDF or image.
	Attachment *Attachment `json:"attachment,omitempty" yaml:"attachment,omitempty"`

	// Kind selects the output document.
	Kind OutputKind `json:"kind" yaml:"kind"`

	// UseReasoning selects the slow, high-capability model with a
	// non-zero reasoning budget.
	UseReasoning bool `json:"use_reasoning" yaml:"use_reasoning"`
}
