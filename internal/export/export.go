// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package export writes generated documents in the formats the CLI offers:
// JSON, YAML, a Markdown outline, standalone HTML, and a printable PDF
// handout.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paperviz/pkg/types"
)

// Format is an output encoding.
type Format string

const (
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
	FormatPDF      Format = "pdf"
)

// Formats lists the supported formats.
var Formats = []Format{FormatJSON, FormatYAML, FormatMarkdown, FormatHTML, FormatPDF}

// ParseFormat accepts a format name or a common file extension.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "html", "htm":
		return FormatHTML, nil
	case "pdf":
		return FormatPDF, nil
	}
	return "", fmt.Errorf("unknown format %q: use json, yaml, markdown, html, or pdf", s)
}

// Extension returns the file extension for f, with the leading dot.
func (f Format) Extension() string {
	if f == FormatMarkdown {
		return ".md"
	}
	return "." + string(f)
}

// Write encodes doc to w in format f.
func Write(w io.Writer, doc *types.Document, f Format) error {
	switch f {
	case FormatJSON:
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		_, err = w.Write(append(data, '\n'))
		return err

	case FormatYAML:
		data, err := yaml.Marshal(doc)
		if err != nil {
			return fmt.Errorf("marshaling YAML: %w", err)
		}
		_, err = w.Write(data)
		return err

	case FormatMarkdown:
		_, err := io.WriteString(w, Markdown(doc))
		return err

	case FormatHTML:
		return writeHTML(w, doc)

	case FormatPDF:
		return writePDF(w, doc)
	}
	return fmt.Errorf("unknown format %q", f)
}

// Title returns the document's title, or a heading derived from its kind.
func Title(doc *types.Document) string {
	switch {
	case doc.Poster != nil && doc.Poster.Title != "":
		return doc.Poster.Title
	case doc.Diagram != nil && doc.Diagram.Title != "":
		return doc.Diagram.Title
	case len(doc.Slides) > 0 && doc.Slides[0].Title != "":
		return doc.Slides[0].Title
	}
	words := strings.Split(strings.ToLower(string(doc.Kind)), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// Markdown renders doc as a Markdown outline. Diagram links whose endpoints
// are not nodes are omitted.
func Markdown(doc *types.Document) string {
	var b strings.Builder
	switch {
	case doc.Analysis != nil:
		b.WriteString(doc.Analysis.Markdown)
		if !strings.HasSuffix(doc.Analysis.Markdown, "\n") {
			b.WriteString("\n")
		}

	case doc.Poster != nil:
		p := doc.Poster
		fmt.Fprintf(&b, "# %s\n\n", p.Title)
		if p.Authors != "" {
			fmt.Fprintf(&b, "*%s*\n\n", p.Authors)
		}
		for _, s := range []struct{ name, body string }{
			{"Abstract", p.Abstract},
			{"Methods", p.Methods},
			{"Results", p.Results},
			{"Conclusion", p.Conclusion},
		} {
			fmt.Fprintf(&b, "## %s\n\n%s\n\n", s.name, s.body)
		}
		if len(p.KeyFigures) > 0 {
			b.WriteString("## Key Figures\n\n")
			for _, f := range p.KeyFigures {
				fmt.Fprintf(&b, "- %s\n", f.Description)
			}
			b.WriteString("\n")
		}

	case doc.Diagram != nil:
		d := doc.Diagram
		fmt.Fprintf(&b, "# %s\n\n", d.Title)
		if d.Summary != "" {
			fmt.Fprintf(&b, "%s\n\n", d.Summary)
		}
		labels := make(map[string]string, len(d.Nodes))
		b.WriteString("## Nodes\n\n")
		for _, n := range d.Nodes {
			labels[n.ID] = n.Label
			if n.Type != "" {
				fmt.Fprintf(&b, "- **%s** (`%s`, %s)\n", n.Label, n.ID, n.Type)
			} else {
				fmt.Fprintf(&b, "- **%s** (`%s`)\n", n.Label, n.ID)
			}
		}
		b.WriteString("\n## Links\n\n")
		for _, l := range d.Links {
			src, okSrc := labels[l.Source]
			dst, okDst := labels[l.Target]
			if !okSrc || !okDst {
				continue
			}
			if l.Label != "" {
				fmt.Fprintf(&b, "- %s → %s: %s\n", src, dst, l.Label)
			} else {
				fmt.Fprintf(&b, "- %s → %s\n", src, dst)
			}
		}

	default:
		for i, s := range doc.Slides {
			if i > 0 {
				b.WriteString("---\n\n")
			}
			fmt.Fprintf(&b, "## %d. %s\n\n", i+1, s.Title)
			for _, bullet := range s.Bullets {
				fmt.Fprintf(&b, "- %s\n", bullet)
			}
			if s.SpeakerNotes != "" {
				b.WriteString("\n")
				for _, line := range strings.Split(strings.TrimRight(s.SpeakerNotes, "\n"), "\n") {
					fmt.Fprintf(&b, "> %s\n", line)
				}
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

func writeHTML(w io.Writer, doc *types.Document) error {
	var body bytes.Buffer
	if err := md.Convert([]byte(Markdown(doc)), &body); err != nil {
		return fmt.Errorf("rendering markdown: %w", err)
	}
	_, err := fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>%s</title>
</head>
<body>
%s</body>
</html>
`, html.EscapeString(Title(doc)), body.String())
	return err
}
