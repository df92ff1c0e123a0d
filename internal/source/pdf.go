package source

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"github.com/ledongthuc/pdf"

	"doc-triage/internal/models"
)

const (
	// Page height used when no MediaBox can be found (US Letter)
	defaultPageHeight = 792.0
	// Maximum baseline drift between glyphs of the same word
	baselineTolerance = 1.0
	// Horizontal gap, as a fraction of the font size, that separates two words
	wordGapFactor = 0.3
	// Guard against cyclic Parent chains when looking up inherited attributes
	maxInheritDepth = 32
)

// PDFDocument reads positioned words from a PDF text layer.
type PDFDocument struct {
	id       string
	reader   *pdf.Reader
	numPages int
}

// OpenPDF parses PDF bytes.
func OpenPDF(id string, data []byte) (doc *PDFDocument, err error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty PDF content")
	}

	// The decoder panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = fmt.Errorf("failed to open PDF: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}

	return &PDFDocument{
		id:       id,
		reader:   r,
		numPages: r.NumPage(),
	}, nil
}

func (d *PDFDocument) ID() string    { return d.id }
func (d *PDFDocument) NumPages() int { return d.numPages }
func (d *PDFDocument) Close() error  { return nil }

// PageWords extracts the words of a single page. Pages without a content
// dictionary yield no words.
func (d *PDFDocument) PageWords(n int) (words []models.PositionedWord, err error) {
	if n < 1 || n > d.numPages {
		return nil, fmt.Errorf("page %d out of range [1, %d]", n, d.numPages)
	}

	defer func() {
		if r := recover(); r != nil {
			words = nil
			err = fmt.Errorf("failed to decode page content: %v", r)
		}
	}()

	page := d.reader.Page(n)
	if page.V.IsNull() {
		return nil, nil
	}

	content := page.Content()
	return wordsFromGlyphs(content.Text, pageHeight(page)), nil
}

// pageHeight resolves the MediaBox height, following inherited attributes up the page tree.
func pageHeight(page pdf.Page) float64 {
	v := page.V
	for i := 0; i < maxInheritDepth && !v.IsNull(); i++ {
		box := v.Key("MediaBox")
		if box.Len() == 4 {
			if h := box.Index(3).Float64() - box.Index(1).Float64(); h > 0 {
				return h
			}
		}
		v = v.Key("Parent")
	}
	return defaultPageHeight
}

// wordsFromGlyphs merges glyph runs into words. A word ends at a whitespace
// glyph, a baseline change, or a horizontal gap wider than a fraction of the
// font size. Vertical positions are flipped so that Top grows down the page.
func wordsFromGlyphs(glyphs []pdf.Text, height float64) []models.PositionedWord {
	var words []models.PositionedWord
	var current strings.Builder
	var start pdf.Text
	var lastEnd, lastY float64
	open := false

	flush := func() {
		if !open {
			return
		}
		if text := normalizeWord(current.String()); text != "" {
			words = append(words, models.PositionedWord{
				Text:     text,
				X0:       start.X,
				Top:      height - (start.Y + start.FontSize),
				FontSize: start.FontSize,
			})
		}
		current.Reset()
		open = false
	}

	for _, g := range glyphs {
		if strings.TrimSpace(g.S) == "" {
			flush()
			continue
		}

		if open {
			gap := g.X - lastEnd
			if math.Abs(g.Y-lastY) > baselineTolerance || gap > g.FontSize*wordGapFactor || gap < -g.FontSize {
				flush()
			}
		}

		if !open {
			start = g
			open = true
		}
		current.WriteString(g.S)
		lastEnd = g.X + g.W
		lastY = g.Y
	}
	flush()

	return words
}
