package source

import (
	"bytes"
	"testing"

	"github.com/fumiama/go-docx"
	"github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doc-triage/internal/models"
)

func texts(words []models.PositionedWord) []string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = w.Text
	}
	return out
}

func glyphs(s string, x, y, size float64) []pdf.Text {
	var out []pdf.Text
	for _, r := range s {
		out = append(out, pdf.Text{Font: "Helvetica", FontSize: size, X: x, Y: y, W: size * 0.5, S: string(r)})
		x += size * 0.5
	}
	return out
}

func TestWordsFromGlyphs(t *testing.T) {
	var in []pdf.Text
	in = append(in, glyphs("Hello world", 72, 700, 12)...)
	in = append(in, glyphs("Next", 72, 680, 10)...)

	words := wordsFromGlyphs(in, 792)
	require.Len(t, words, 3)
	assert.Equal(t, []string{"Hello", "world", "Next"}, texts(words))

	assert.Equal(t, 72.0, words[0].X0)
	assert.InDelta(t, 792-(700+12), words[0].Top, 1e-9)
	assert.Equal(t, 12.0, words[0].FontSize)
	assert.InDelta(t, 792-(680+10), words[2].Top, 1e-9)
}

func TestWordsFromGlyphsGapSplits(t *testing.T) {
	in := append(glyphs("ab", 0, 100, 10), glyphs("cd", 40, 100, 10)...)

	words := wordsFromGlyphs(in, 792)
	assert.Equal(t, []string{"ab", "cd"}, texts(words))
	assert.Equal(t, 40.0, words[1].X0)
}

func TestWordsFromGlyphsLigature(t *testing.T) {
	in := []pdf.Text{
		{FontSize: 10, X: 0, Y: 100, W: 6, S: "ﬁ"},
		{FontSize: 10, X: 6, Y: 100, W: 5, S: "n"},
		{FontSize: 10, X: 11, Y: 100, W: 5, S: "d"},
	}
	words := wordsFromGlyphs(in, 792)
	assert.Equal(t, []string{"find"}, texts(words))
}

func TestOpenPDFRejectsGarbage(t *testing.T) {
	_, err := OpenPDF("bad.pdf", []byte("not a pdf at all"))
	assert.Error(t, err)

	_, err = OpenPDF("empty.pdf", nil)
	assert.Error(t, err)
}

func TestParseText(t *testing.T) {
	doc := parseText("notes.txt", []byte("first line here\nsecond line\n\n\fpage two"))
	require.Equal(t, 2, doc.NumPages())

	p1, err := doc.PageWords(1)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "line", "here", "second", "line"}, texts(p1))
	assert.Equal(t, 0.0, p1[0].Top)
	assert.Equal(t, gridLineHeight, p1[3].Top)
	assert.Less(t, p1[0].X0, p1[1].X0)

	p2, err := doc.PageWords(2)
	require.NoError(t, err)
	assert.Equal(t, []string{"page", "two"}, texts(p2))

	_, err = doc.PageWords(3)
	assert.Error(t, err)
}

func TestParseMarkdown(t *testing.T) {
	src := "# Vegetarian Lasagna\n\nLayer the pasta with **spinach** and ricotta.\n\n- Preheat oven\n- Bake 40 minutes\n"
	doc, err := parseMarkdown("recipes.md", []byte(src))
	require.NoError(t, err)
	require.Equal(t, 1, doc.NumPages())

	words, err := doc.PageWords(1)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Vegetarian", "Lasagna",
		"Layer", "the", "pasta", "with", "spinach", "and", "ricotta.",
		"Preheat", "oven",
		"Bake", "40", "minutes",
	}, texts(words))

	assert.Equal(t, headingFontSize(1), words[0].FontSize)
	assert.Equal(t, bodyFontSize, words[2].FontSize)
	assert.Greater(t, words[2].Top, words[0].Top)
}

func TestParseHTML(t *testing.T) {
	src := `<html><head><title>ignored</title><style>p{}</style></head>
<body><h2>Side Dishes</h2><p>Roasted <b>carrots</b><br>with thyme</p><script>var x;</script></body></html>`
	doc, err := parseHTML("menu.html", []byte(src))
	require.NoError(t, err)

	words, err := doc.PageWords(1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Side", "Dishes", "Roasted", "carrots", "with", "thyme"}, texts(words))
	assert.Equal(t, headingFontSize(2), words[0].FontSize)
	assert.Equal(t, words[2].Top, words[3].Top)
	assert.Greater(t, words[4].Top, words[3].Top)
}

func TestParseDOCX(t *testing.T) {
	w := docx.New().WithDefaultTheme()
	w.AddParagraph().Style("Heading1").AddText("Weeknight Dinners")
	w.AddParagraph().AddText("Quick pasta with ")
	w.AddParagraph()
	w.AddParagraph().Style("heading 2").AddText("Sides")
	w.AddParagraph().AddText("Garlic bread")

	var buf bytes.Buffer
	_, err := w.WriteTo(&buf)
	require.NoError(t, err)

	doc, err := FromBytes("menus/dinners.docx", buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "dinners.docx", doc.ID())
	require.Equal(t, 1, doc.NumPages())

	words, err := doc.PageWords(1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Weeknight", "Dinners", "Quick", "pasta", "with", "Sides", "Garlic", "bread"}, texts(words))
	assert.Equal(t, headingFontSize(1), words[0].FontSize)
	assert.Equal(t, bodyFontSize, words[2].FontSize)
	assert.Equal(t, headingFontSize(2), words[5].FontSize)
	assert.Greater(t, words[2].Top, words[0].Top)
}

func TestParseDOCXRejectsGarbage(t *testing.T) {
	for name, data := range map[string][]byte{
		"empty":     nil,
		"not a zip": []byte("plain text pretending to be a document"),
		"truncated": []byte("PK\x03\x04\x14\x00\x00\x00"),
	} {
		t.Run(name, func(t *testing.T) {
			var (
				doc *MemoryDocument
				err error
			)
			require.NotPanics(t, func() { doc, err = parseDOCX("broken.docx", data) })
			assert.Error(t, err)
			assert.Nil(t, doc)
		})
	}
}

func TestFromBytesUnsupported(t *testing.T) {
	_, err := FromBytes("image.png", []byte{0x89})
	assert.Error(t, err)
	assert.False(t, IsSupportedExtension("image.png"))
	assert.True(t, IsSupportedExtension("Guide.PDF"))
}

func TestFromBytesUsesBaseName(t *testing.T) {
	doc, err := FromBytes("some/dir/notes.txt", []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", doc.ID())
}
