// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ingest

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-pdf/fpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paperviz/pkg/types"
)

// newTestPDF renders a small, well-formed PDF with the given page count.
func newTestPDF(t *testing.T, pages int) []byte {
	t.Helper()
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetFont("Helvetica", "", 12)
	for i := 0; i < pages; i++ {
		doc.AddPage()
		doc.Cell(40, 10, "Attention Is All You Need")
	}
	var buf bytes.Buffer
	require.NoError(t, doc.Output(&buf))
	return buf.Bytes()
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("markdown is text", func(t *testing.T) {
		in, err := File(writeFile(t, dir, "notes.md", []byte("# Notes\nTransformers.")))
		require.NoError(t, err)
		assert.Equal(t, "# Notes\nTransformers.", in.Text)
		assert.Nil(t, in.Attachment)
	})

	t.Run("pdf is attachment with page count", func(t *testing.T) {
		in, err := File(writeFile(t, dir, "paper.pdf", newTestPDF(t, 3)))
		require.NoError(t, err)
		require.NotNil(t, in.Attachment)
		assert.Equal(t, "application/pdf", in.Attachment.MIMEType)
		assert.True(t, in.Attachment.IsPDF())
		assert.Equal(t, 3, in.Pages)
		assert.Empty(t, in.Text)
	})

	t.Run("image sniffed without extension", func(t *testing.T) {
		in, err := File(writeFile(t, dir, "figure", pngHeader))
		require.NoError(t, err)
		require.NotNil(t, in.Attachment)
		assert.Equal(t, "image/png", in.Attachment.MIMEType)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := File(filepath.Join(dir, "nope.txt"))
		assert.Error(t, err)
	})
}

func TestBytesRejects(t *testing.T) {
	tests := []struct {
		name string
		file string
		data []byte
	}{
		{name: "corrupt pdf", file: "broken.pdf", data: []byte("%PDF-1.7 not really")},
		{name: "unsupported type", file: "archive.zip", data: []byte("PK\x03\x04")},
		{name: "invalid utf8 text", file: "bad.txt", data: []byte{0xff, 0xfe, 0xfd}},
		{name: "empty image", file: "empty.png", data: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Bytes(tt.file, tt.data)
			assert.Error(t, err)
		})
	}
}

func TestBytesChecksSizeBeforeParsing(t *testing.T) {
	oversized := append([]byte("%PDF-1.7\n"), make([]byte, MaxAttachmentBytes)...)
	_, err := Bytes("huge.pdf", oversized)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "limit is")

	_, err = Bytes("empty.pdf", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file is empty")
}

func TestDetectMIME(t *testing.T) {
	assert.Equal(t, "text/plain", DetectMIME("a.txt", nil))
	assert.Equal(t, "text/markdown", DetectMIME("README.MD", nil))
	assert.Equal(t, "application/pdf", DetectMIME("x.pdf", nil))
	assert.Equal(t, "image/png", DetectMIME("noext", pngHeader))
	assert.Equal(t, "text/plain", DetectMIME("noext", []byte("plain words")))
}

func TestMerge(t *testing.T) {
	pdfIn := &Input{Path: "a.pdf", Attachment: &types.Attachment{MIMEType: "application/pdf", Data: []byte("x")}}
	imgIn := &Input{Path: "b.png", Attachment: &types.Attachment{MIMEType: "image/png", Data: []byte("y")}}

	text, att, err := Merge([]*Input{{Path: "n.md", Text: "notes"}, pdfIn, {Path: "o.txt", Text: "  "}}, "focus on results")
	require.NoError(t, err)
	assert.Equal(t, "focus on results\n\nnotes", text)
	assert.Same(t, pdfIn.Attachment, att)

	_, _, err = Merge([]*Input{pdfIn, imgIn}, "")
	assert.Error(t, err)
}
