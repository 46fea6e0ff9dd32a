// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ingest reads input files for the CLI. Text-like files become
// request text; PDFs and images become the request attachment. Anything else
// is rejected.
package ingest

import (
	"bytes"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"github.com/pdiddy/paperviz/pkg/types"
)

// MaxAttachmentBytes bounds attachments sent inline to the service.
const MaxAttachmentBytes = 20 << 20

// Input is an ingested file.
type Input struct {
	// Path is the file path as given.
	Path string

	// Text is set for text-like files.
	Text string

	// Attachment is set for PDFs and images.
	Attachment *types.Attachment

	// Pages is the page count for PDFs, zero otherwise.
	Pages int
}

var textExtensions = map[string]string{
	".txt":      "text/plain",
	".md":       "text/markdown",
	".markdown": "text/markdown",
}

var imageTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/webp": true,
	"image/gif":  true,
	"image/heic": true,
	"image/heif": true,
}

// File reads path and classifies it.
func File(path string) (*Input, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return Bytes(path, data)
}

// Bytes classifies data read from name. The MIME type comes from the file
// extension, falling back to content sniffing.
func Bytes(name string, data []byte) (*Input, error) {
	mimeType := DetectMIME(name, data)
	in := &Input{Path: name}

	switch {
	case strings.HasPrefix(mimeType, "text/"):
		if !utf8.Valid(data) {
			return nil, fmt.Errorf("%s: text file is not valid UTF-8", name)
		}
		in.Text = string(data)
		return in, nil

	case mimeType == "application/pdf":
		if err := checkAttachmentSize(name, data); err != nil {
			return nil, err
		}
		pages, err := countPages(data)
		if err != nil {
			return nil, fmt.Errorf("%s: not a readable PDF: %w", name, err)
		}
		in.Pages = pages

	case imageTypes[mimeType]:
		if err := checkAttachmentSize(name, data); err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("%s: unsupported file type %s: use .txt, .md, .pdf, or an image", name, mimeType)
	}

	in.Attachment = &types.Attachment{MIMEType: mimeType, Data: data}
	return in, nil
}

// checkAttachmentSize runs before any parsing of the file.
func checkAttachmentSize(name string, data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("%s: file is empty", name)
	}
	if len(data) > MaxAttachmentBytes {
		return fmt.Errorf("%s: attachment is %d bytes, limit is %d", name, len(data), MaxAttachmentBytes)
	}
	return nil
}

// DetectMIME returns the media type for name, without parameters.
func DetectMIME(name string, data []byte) string {
	ext := strings.ToLower(filepath.Ext(name))
	if t, ok := textExtensions[ext]; ok {
		return t
	}
	t := mime.TypeByExtension(ext)
	if t == "" {
		t = http.DetectContentType(data)
	}
	if mt, _, err := mime.ParseMediaType(t); err == nil {
		return mt
	}
	return t
}

// countPages parses the PDF trailer and page tree. The parser panics on some
// corrupt inputs, so a panic is reported as an error.
func countPages(data []byte) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parsing PDF: %v", r)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, err
	}
	return r.NumPage(), nil
}

// Merge combines several inputs into one request. Texts are joined in order;
// at most one attachment is allowed.
func Merge(inputs []*Input, extra string) (string, *types.Attachment, error) {
	var texts []string
	if s := strings.TrimSpace(extra); s != "" {
		texts = append(texts, s)
	}
	var att *types.Attachment
	for _, in := range inputs {
		if in.Attachment != nil {
			if att != nil {
				return "", nil, fmt.Errorf("only one PDF or image can be attached; got a second one in %s", in.Path)
			}
			att = in.Attachment
			continue
		}
		if s := strings.TrimSpace(in.Text); s != "" {
			texts = append(texts, s)
		}
	}
	return strings.Join(texts, "\n\n"), att, nil
}
