// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package schema is the registry of structured-output contracts, one per
// OutputKind. Each contract is a JSON Schema whose top-level property
// ordering puts "reasoning" first so partial streams show the model's
// reasoning before the payload. The registry is built once at package
// initialization and is read-only afterwards.
package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/xeipuuv/gojsonschema"

	"github.com/pdiddy/paperviz/pkg/types"
)

// ReasoningField is the property every structured schema emits first.
const ReasoningField = "reasoning"

// Schema is the structural contract for one OutputKind.
type Schema struct {
	// Kind is the output kind this schema describes.
	Kind types.OutputKind

	// Name is a short identifier sent to services that require one.
	Name string

	// Root is the JSON Schema for the whole response. Nil for Analysis.
	Root *jsonschema.Schema

	// Ordering is the top-level property order, reasoning first. Root carries
	// the same order as its PropertyOrder, so marshaled schemas list
	// properties in this order too.
	Ordering []string

	compiled *gojsonschema.Schema
}

// Structured reports whether responses for this kind are JSON.
func (s *Schema) Structured() bool {
	return s.Root != nil
}

// Required returns the top-level required fields.
func (s *Schema) Required() []string {
	if s.Root == nil {
		return nil
	}
	return s.Root.Required
}

// JSON returns the schema document, indented.
func (s *Schema) JSON() ([]byte, error) {
	if s.Root == nil {
		return []byte("null"), nil
	}
	return json.MarshalIndent(s.Root, "", "  ")
}

// ValidationError lists every violation found in a decoded document.
type ValidationError struct {
	Kind   types.OutputKind
	Issues []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s document does not match schema: %s", e.Kind, strings.Join(e.Issues, "; "))
}

// Validate checks a decoded JSON value (as produced by json.Unmarshal into
// an any) against the schema: required fields, types, and enums.
func (s *Schema) Validate(doc any) error {
	if s.compiled == nil {
		return nil
	}
	result, err := s.compiled.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("validating %s document: %w", s.Kind, err)
	}
	if result.Valid() {
		return nil
	}
	issues := make([]string, len(result.Errors()))
	for i, desc := range result.Errors() {
		issues[i] = desc.String()
	}
	return &ValidationError{Kind: s.Kind, Issues: issues}
}

var registry = mustBuild()

// Lookup returns the schema for kind.
func Lookup(kind types.OutputKind) (*Schema, error) {
	s, ok := registry[kind]
	if !ok {
		return nil, fmt.Errorf("no schema registered for output kind %q", kind)
	}
	return s, nil
}

func mustBuild() map[types.OutputKind]*Schema {
	diagram := diagramSchema()
	entries := []*Schema{
		{Kind: types.KindSlides, Name: "slide_deck", Root: slidesSchema(), Ordering: []string{ReasoningField, "slides"}},
		{Kind: types.KindPoster, Name: "poster", Root: posterSchema(), Ordering: []string{ReasoningField, "title", "authors", "abstract", "methods", "results", "conclusion", "keyFigures"}},
		{Kind: types.KindDiagram, Name: "diagram", Root: diagram, Ordering: diagramOrdering},
		{Kind: types.KindCitationMap, Name: "citation_map", Root: diagram, Ordering: diagramOrdering},
		{Kind: types.KindAnalysis, Name: "analysis"},
	}

	out := make(map[types.OutputKind]*Schema, len(entries))
	for _, s := range entries {
		if s.Root != nil {
			s.Root.PropertyOrder = s.Ordering
			compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(s.Root))
			if err != nil {
				panic(fmt.Sprintf("schema: compiling %s: %v", s.Kind, err))
			}
			s.compiled = compiled
		}
		out[s.Kind] = s
	}
	return out
}

func str(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Description: desc}
}

func slidesSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			ReasoningField: str("Step-by-step reasoning on how to structure the presentation based on the input."),
			"slides": {
				Type: "array",
				Items: &jsonschema.Schema{
					Type: "object",
					Properties: map[string]*jsonschema.Schema{
						"title":        str(""),
						"bullets":      {Type: "array", Items: str("")},
						"speakerNotes": str(""),
					},
					Required: []string{"title", "bullets", "speakerNotes"},
				},
			},
		},
		Required: []string{ReasoningField, "slides"},
	}
}

func posterSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			ReasoningField: str("Analysis of the key scientific points to highlight in the poster."),
			"title":        str(""),
			"authors":      str(""),
			"abstract":     str(""),
			"methods":      str(""),
			"results":      str(""),
			"conclusion":   str(""),
			"keyFigures": {
				Type: "array",
				Items: &jsonschema.Schema{
					Type:       "object",
					Properties: map[string]*jsonschema.Schema{"description": str("")},
				},
			},
		},
		Required: []string{ReasoningField, "title", "abstract", "methods", "results", "conclusion"},
	}
}

var diagramOrdering = []string{ReasoningField, "title", "summary", "nodes", "links"}

func diagramSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			ReasoningField: str("Explanation of the relationships and entities identified for the diagram."),
			"title":        str(""),
			"summary":      str(""),
			"nodes": {
				Type: "array",
				Items: &jsonschema.Schema{
					Type: "object",
					Properties: map[string]*jsonschema.Schema{
						"id":    str(""),
						"label": str(""),
						"type":  {Type: "string", Enum: []any{string(types.NodePrimary), string(types.NodeSecondary)}},
					},
					Required: []string{"id", "label"},
				},
			},
			"links": {
				Type: "array",
				Items: &jsonschema.Schema{
					Type: "object",
					Properties: map[string]*jsonschema.Schema{
						"source": str(""),
						"target": str(""),
						"label":  str(""),
					},
					Required: []string{"source", "target"},
				},
			},
		},
		Required: []string{ReasoningField, "title", "nodes", "links"},
	}
}
