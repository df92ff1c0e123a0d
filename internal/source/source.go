// Package source turns documents into per-page sets of positioned words.
package source

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"

	"doc-triage/internal/models"
)

// Document gives page-level access to the words of one document.
// Pages are numbered from 1.
type Document interface {
	ID() string
	NumPages() int
	PageWords(page int) ([]models.PositionedWord, error)
	Close() error
}

// SupportedExtensions lists the file extensions a document can be opened from.
var SupportedExtensions = map[string]bool{
	".pdf":      true,
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
	".docx":     true,
	".txt":      true,
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	return SupportedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// FileOpener opens documents from the local filesystem.
type FileOpener struct{}

// Open reads the file at path and decodes it by extension.
func (FileOpener) Open(path string) (Document, error) {
	return Open(path)
}

// BytesOpener serves documents from memory, keyed by name.
type BytesOpener map[string][]byte

// Open decodes the named entry by extension.
func (o BytesOpener) Open(name string) (Document, error) {
	data, ok := o[name]
	if !ok {
		return nil, fmt.Errorf("document %q not found", name)
	}
	return FromBytes(name, data)
}

// Open reads the file at path and decodes it by extension.
func Open(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return FromBytes(filepath.Base(path), data)
}

// FromBytes decodes raw document bytes. The format is chosen from the extension of name.
func FromBytes(name string, data []byte) (Document, error) {
	id := filepath.Base(name)
	ext := strings.ToLower(filepath.Ext(id))
	switch ext {
	case ".pdf":
		return OpenPDF(id, data)
	case ".md", ".markdown":
		return parseMarkdown(id, data)
	case ".html", ".htm":
		return parseHTML(id, data)
	case ".docx":
		return parseDOCX(id, data)
	case ".txt":
		return parseText(id, data), nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %q", ext)
	}
}

// MemoryDocument is a document whose pages are already available as words.
type MemoryDocument struct {
	id    string
	pages [][]models.PositionedWord
}

// NewMemoryDocument creates a document from pre-positioned words, one slice per page.
func NewMemoryDocument(id string, pages [][]models.PositionedWord) *MemoryDocument {
	return &MemoryDocument{id: id, pages: pages}
}

func (d *MemoryDocument) ID() string    { return d.id }
func (d *MemoryDocument) NumPages() int { return len(d.pages) }
func (d *MemoryDocument) Close() error  { return nil }

func (d *MemoryDocument) PageWords(page int) ([]models.PositionedWord, error) {
	if page < 1 || page > len(d.pages) {
		return nil, fmt.Errorf("page %d out of range [1, %d]", page, len(d.pages))
	}
	return d.pages[page-1], nil
}

// normalizeWord folds compatibility characters such as ligatures into plain text.
func normalizeWord(s string) string {
	return norm.NFKC.String(strings.TrimSpace(s))
}
