// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"

	"github.com/pdiddy/paperviz/pkg/types"
)

// handout wraps an fpdf document with the core-font text translator, so
// UTF-8 input is mapped to cp1252 where possible.
type handout struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func newHandout(title string) *handout {
	p := fpdf.New("P", "mm", "A4", "")
	p.SetTitle(title, true)
	p.SetCreator("paperviz", true)
	p.SetMargins(18, 18, 18)
	p.SetAutoPageBreak(true, 18)
	return &handout{pdf: p, tr: p.UnicodeTranslatorFromDescriptor("")}
}

func (h *handout) heading(text string, size float64) {
	h.pdf.SetFont("Helvetica", "B", size)
	h.pdf.MultiCell(0, size*0.5, h.tr(text), "", "L", false)
	h.pdf.Ln(2)
}

func (h *handout) para(text string) {
	if text == "" {
		return
	}
	h.pdf.SetFont("Helvetica", "", 11)
	h.pdf.MultiCell(0, 5.5, h.tr(text), "", "L", false)
	h.pdf.Ln(3)
}

func (h *handout) bullet(text string) {
	h.pdf.SetFont("Helvetica", "", 11)
	h.pdf.MultiCell(0, 5.5, h.tr("- "+text), "", "L", false)
}

func (h *handout) note(text string) {
	if text == "" {
		return
	}
	h.pdf.Ln(2)
	h.pdf.SetFont("Helvetica", "I", 10)
	h.pdf.MultiCell(0, 5, h.tr("Notes: "+text), "", "L", false)
}

// writePDF renders a plain handout: one page per slide, or a single flowing
// document for the other kinds.
func writePDF(w io.Writer, doc *types.Document) error {
	h := newHandout(Title(doc))

	switch {
	case doc.Analysis != nil:
		h.pdf.AddPage()
		h.heading(Title(doc), 18)
		h.para(doc.Analysis.Markdown)

	case doc.Poster != nil:
		p := doc.Poster
		h.pdf.AddPage()
		h.heading(p.Title, 20)
		h.para(p.Authors)
		for _, s := range []struct{ name, body string }{
			{"Abstract", p.Abstract},
			{"Methods", p.Methods},
			{"Results", p.Results},
			{"Conclusion", p.Conclusion},
		} {
			h.heading(s.name, 14)
			h.para(s.body)
		}
		if len(p.KeyFigures) > 0 {
			h.heading("Key Figures", 14)
			for _, f := range p.KeyFigures {
				h.bullet(f.Description)
			}
		}

	case doc.Diagram != nil:
		d := doc.Diagram
		h.pdf.AddPage()
		h.heading(d.Title, 18)
		h.para(d.Summary)
		labels := make(map[string]string, len(d.Nodes))
		h.heading("Nodes", 14)
		for _, n := range d.Nodes {
			labels[n.ID] = n.Label
			h.bullet(fmt.Sprintf("%s (%s)", n.Label, n.ID))
		}
		h.pdf.Ln(3)
		h.heading("Links", 14)
		for _, l := range d.Links {
			src, okSrc := labels[l.Source]
			dst, okDst := labels[l.Target]
			if !okSrc || !okDst {
				continue
			}
			line := src + " -> " + dst
			if l.Label != "" {
				line += ": " + l.Label
			}
			h.bullet(line)
		}

	default:
		for i, s := range doc.Slides {
			h.pdf.AddPage()
			h.heading(fmt.Sprintf("%d. %s", i+1, s.Title), 18)
			for _, b := range s.Bullets {
				h.bullet(b)
			}
			h.note(s.SpeakerNotes)
		}
		if len(doc.Slides) == 0 {
			h.pdf.AddPage()
		}
	}

	if err := h.pdf.Output(w); err != nil {
		return fmt.Errorf("rendering PDF: %w", err)
	}
	return nil
}
