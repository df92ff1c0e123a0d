package source

import (
	"strings"
	"unicode/utf8"

	"doc-triage/internal/models"
)

// Flow formats (text, markdown, html, docx) carry no geometry, so words are
// placed on a fixed grid: one line per row, left-to-right in reading order.
const (
	gridLineHeight = 12.0
	gridCharWidth  = 6.0
	bodyFontSize   = 10.0
)

type flowLine struct {
	text     string
	fontSize float64
}

// headingFontSize maps a heading level (1-6) to a font size larger than body text.
func headingFontSize(level int) float64 {
	if level < 1 || level > 6 {
		return bodyFontSize
	}
	return bodyFontSize + float64(7-level)*2
}

// splitFlowLines breaks a block of text into lines sharing one font size.
func splitFlowLines(text string, fontSize float64) []flowLine {
	var lines []flowLine
	for _, l := range strings.Split(text, "\n") {
		if strings.TrimSpace(l) == "" {
			continue
		}
		lines = append(lines, flowLine{text: l, fontSize: fontSize})
	}
	return lines
}

// layoutWords positions every token of every line on the grid.
func layoutWords(lines []flowLine) []models.PositionedWord {
	var words []models.PositionedWord
	for i, line := range lines {
		top := float64(i) * gridLineHeight
		x := 0.0
		for _, tok := range strings.Fields(line.text) {
			if text := normalizeWord(tok); text != "" {
				words = append(words, models.PositionedWord{
					Text:     text,
					X0:       x,
					Top:      top,
					FontSize: line.fontSize,
				})
			}
			x += float64(utf8.RuneCountInString(tok)+1) * gridCharWidth
		}
	}
	return words
}

// parseText treats form feeds as page breaks.
func parseText(id string, data []byte) *MemoryDocument {
	var pages [][]models.PositionedWord
	for _, page := range strings.Split(string(data), "\f") {
		pages = append(pages, layoutWords(splitFlowLines(page, bodyFontSize)))
	}
	return NewMemoryDocument(id, pages)
}
