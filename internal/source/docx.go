package source

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/fumiama/go-docx"

	"doc-triage/internal/models"
)

// parseDOCX lays out every non-empty paragraph as one line. Heading styles get larger font sizes.
func parseDOCX(id string, data []byte) (mem *MemoryDocument, err error) {
	// The unpacker panics on some truncated archives.
	defer func() {
		if r := recover(); r != nil {
			mem = nil
			err = fmt.Errorf("failed to parse docx: %v", r)
		}
	}()

	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse docx: %w", err)
	}

	var lines []flowLine
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		lines = append(lines, splitFlowLines(docxParagraphText(para), headingFontSize(docxHeadingLevel(para)))...)
	}

	return NewMemoryDocument(id, [][]models.PositionedWord{layoutWords(lines)}), nil
}

// docxHeadingLevel understands both "Heading1" and "heading 1" style ids.
func docxHeadingLevel(para *docx.Paragraph) int {
	if para.Properties == nil || para.Properties.Style == nil {
		return 0
	}
	style := strings.ToLower(strings.ReplaceAll(para.Properties.Style.Val, " ", ""))
	if !strings.HasPrefix(style, "heading") {
		return 0
	}
	level, err := strconv.Atoi(strings.TrimPrefix(style, "heading"))
	if err != nil {
		return 0
	}
	return level
}

func docxParagraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
