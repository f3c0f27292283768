// Package ingest loads source documents and extracts their plain text so the
// rest of the pipeline only ever sees text.
package ingest

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// SourceType tags the original document format.
type SourceType string

const (
	TypeText     SourceType = "txt"
	TypeMarkdown SourceType = "markdown"
	TypeHTML     SourceType = "html"
	TypePDF      SourceType = "pdf"
	TypeDOCX     SourceType = "docx"
)

// Source is a loaded document. Content is immutable after extraction;
// cleaning produces new values downstream, never a mutation of this one.
type Source struct {
	ID       uuid.UUID
	Title    string
	Type     SourceType
	Content  string
	Metadata map[string]string
}

// DetectType maps a filename to a source type. Unknown extensions are
// treated as plain text.
func DetectType(filename string) SourceType {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".md", ".markdown":
		return TypeMarkdown
	case ".html", ".htm":
		return TypeHTML
	case ".pdf":
		return TypePDF
	case ".docx":
		return TypeDOCX
	default:
		return TypeText
	}
}

// Load extracts text from raw file bytes and wraps it in a Source.
func Load(filename string, data []byte) (*Source, error) {
	typ := DetectType(filename)
	text, err := Extract(typ, data)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", typ, err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("document %q contains no extractable text", filename)
	}
	title := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	return &Source{
		ID:      uuid.New(),
		Title:   title,
		Type:    typ,
		Content: text,
		Metadata: map[string]string{
			"filename": filepath.Base(filename),
			"bytes":    fmt.Sprintf("%d", len(data)),
		},
	}, nil
}

// Extract returns the plain text of a document of the given type.
func Extract(typ SourceType, data []byte) (string, error) {
	switch typ {
	case TypeText, TypeMarkdown:
		return string(bytes.ToValidUTF8(data, []byte("�"))), nil
	case TypeHTML:
		return extractHTML(data)
	case TypePDF:
		return extractPDF(data)
	case TypeDOCX:
		return extractDOCX(data)
	default:
		return "", fmt.Errorf("unsupported source type %q", typ)
	}
}
