package source

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"doc-triage/internal/models"
)

// parseHTML lays out headings and text blocks from the document body.
func parseHTML(id string, data []byte) (*MemoryDocument, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}

	var lines []flowLine
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if level := headingLevel(n.Data); level > 0 {
				lines = append(lines, splitFlowLines(textContent(n), headingFontSize(level))...)
				return
			}
			switch n.Data {
			case "script", "style", "nav", "noscript", "template":
				return
			case "p", "li", "td", "th", "blockquote", "pre", "dt", "dd", "figcaption":
				lines = append(lines, splitFlowLines(textContent(n), bodyFontSize)...)
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	if body := findBody(doc); body != nil {
		walk(body)
	} else {
		walk(doc)
	}

	return NewMemoryDocument(id, [][]models.PositionedWord{layoutWords(lines)}), nil
}

func headingLevel(tag string) int {
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0')
	}
	return 0
}

// textContent concatenates text nodes, keeping <br> as a line break.
func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			buf.WriteString(n.Data)
		case n.Type == html.ElementNode && n.Data == "br":
			buf.WriteByte('\n')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(buf.String())
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
