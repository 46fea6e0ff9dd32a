// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "encoding/json"

// Slide is one slide of a generated deck.
type Slide struct {
	Title        string   `json:"title" yaml:"title"`
	Bullets      []string `json:"bullets" yaml:"bullets"`
	SpeakerNotes string   `json:"speakerNotes" yaml:"speaker_notes"`
}

// KeyFigure describes a figure the poster should highlight.
type KeyFigure struct {
	Description string `json:"description" yaml:"description"`
}

// Poster is a scientific poster summary.
type Poster struct {
	Reasoning  string      `json:"reasoning,omitempty" yaml:"reasoning,omitempty"`
	Title      string      `json:"title" yaml:"title"`
	Authors    string      `json:"authors,omitempty" yaml:"authors,omitempty"`
	Abstract   string      `json:"abstract" yaml:"abstract"`
	Methods    string      `json:"methods" yaml:"methods"`
	Results    string      `json:"results" yaml:"results"`
	Conclusion string      `json:"conclusion" yaml:"conclusion"`
	KeyFigures []KeyFigure `json:"keyFigures,omitempty" yaml:"key_figures,omitempty"`
}

// NodeType distinguishes central concepts from supporting ones.
type NodeType string

const (
	NodePrimary   NodeType = "primary"
	NodeSecondary NodeType = "secondary"
)

// GraphNode is a diagram vertex.
type GraphNode struct {
	ID    string   `json:"id" yaml:"id"`
	Label string   `json:"label" yaml:"label"`
	Type  NodeType `json:"type,omitempty" yaml:"type,omitempty"`
}

// GraphLink is a directed diagram edge between two node IDs.
type GraphLink struct {
	Source string `json:"source" yaml:"source"`
	Target string `json:"target" yaml:"target"`
	Label  string `json:"label,omitempty" yaml:"label,omitempty"`
}

// Diagram is a node-link structure. It backs both DIAGRAM and CITATION_MAP.
type Diagram struct {
	Reasoning string      `json:"reasoning,omitempty" yaml:"reasoning,omitempty"`
	Title     string      `json:"title" yaml:"title"`
	Summary   string      `json:"summary,omitempty" yaml:"summary,omitempty"`
	Nodes     []GraphNode `json:"nodes" yaml:"nodes"`
	Links     []GraphLink `json:"links" yaml:"links"`
}

// DanglingLinks returns the links whose source or target is not a node ID in
// the same diagram. The pipeline does not reject these; consumers skip them.
func (d *Diagram) DanglingLinks() []GraphLink {
	ids := make(map[string]bool, len(d.Nodes))
	for _, n := range d.Nodes {
		ids[n.ID] = true
	}
	var dangling []GraphLink
	for _, l := range d.Links {
		if !ids[l.Source] || !ids[l.Target] {
			dangling = append(dangling, l)
		}
	}
	return dangling
}

// Analysis is free-form Markdown prose.
type Analysis struct {
	Markdown string `json:"markdown" yaml:"markdown"`
}

// Document is a decoded, validated generation result. Exactly one of the
// payload fields is set, matching Kind.
type Document struct {
	Kind OutputKind `json:"kind" yaml:"kind"`

	Slides   []Slide   `json:"slides,omitempty" yaml:"slides,omitempty"`
	Poster   *Poster   `json:"poster,omitempty" yaml:"poster,omitempty"`
	Diagram  *Diagram  `json:"diagram,omitempty" yaml:"diagram,omitempty"`
	Analysis *Analysis `json:"analysis,omitempty" yaml:"analysis,omitempty"`
}

// documentFields is Document without its marshaling methods.
type documentFields Document

// slidesDocument is the encoded form of a deck. The slides key is always
// present so an empty deck survives a round trip.
type slidesDocument struct {
	Kind   OutputKind `json:"kind" yaml:"kind"`
	Slides []Slide    `json:"slides" yaml:"slides"`
}

func (d Document) encoded() any {
	if d.Kind != KindSlides {
		return documentFields(d)
	}
	slides := d.Slides
	if slides == nil {
		slides = []Slide{}
	}
	return slidesDocument{Kind: d.Kind, Slides: slides}
}

// MarshalJSON implements json.Marshaler.
func (d Document) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.encoded())
}

// MarshalYAML implements yaml.Marshaler.
func (d Document) MarshalYAML() (any, error) {
	return d.encoded(), nil
}

// Payload returns the populated variant, or nil for an unknown kind.
func (d *Document) Payload() any {
	switch d.Kind {
	case KindSlides:
		return d.Slides
	case KindPoster:
		return d.Poster
	case KindDiagram, KindCitationMap:
		return d.Diagram
	case KindAnalysis:
		return d.Analysis
	}
	return nil
}
