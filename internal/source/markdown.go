package source

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"doc-triage/internal/models"
)

// parseMarkdown lays out each top-level block of a Markdown document as one or more lines.
func parseMarkdown(id string, src []byte) (*MemoryDocument, error) {
	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(src))

	var lines []flowLine
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		var buf bytes.Buffer
		writeMarkdownText(n, src, &buf)

		size := bodyFontSize
		if h, ok := n.(*ast.Heading); ok {
			size = headingFontSize(h.Level)
		}
		lines = append(lines, splitFlowLines(buf.String(), size)...)
	}

	return NewMemoryDocument(id, [][]models.PositionedWord{layoutWords(lines)}), nil
}

// writeMarkdownText collects the visible text of a node, ending every block with a newline.
func writeMarkdownText(n ast.Node, src []byte, buf *bytes.Buffer) {
	switch node := n.(type) {
	case *ast.Text:
		buf.Write(node.Segment.Value(src))
		if node.SoftLineBreak() || node.HardLineBreak() {
			buf.WriteByte('\n')
		}
		return
	case *ast.String:
		buf.Write(node.Value)
		return
	case *ast.FencedCodeBlock, *ast.CodeBlock:
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			buf.Write(line.Value(src))
		}
		buf.WriteByte('\n')
		return
	}

	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		writeMarkdownText(c, src, buf)
	}
	if n.Type() == ast.TypeBlock {
		buf.WriteByte('\n')
	}
}
