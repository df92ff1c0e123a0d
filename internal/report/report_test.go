package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doc-triage/internal/models"
)

var fixedClock = func() time.Time {
	return time.Date(2025, 7, 10, 14, 30, 0, 0, time.FixedZone("CEST", 2*3600))
}

func rankedSection(doc, title string, page, rank int) models.RankedResult {
	return models.RankedResult{
		ScoredSection: models.ScoredSection{
			Section: models.SectionCandidate{Document: doc, PageNumber: page, Title: title, Text: title},
		},
		Rank: rank,
	}
}

func TestAssemble(t *testing.T) {
	a := NewAssembler(fixedClock)
	in := Input{Documents: []string{"a.pdf", "b.pdf"}, Persona: "chef", Task: "find vegetarian recipes"}
	top := []models.RankedResult{
		rankedSection("b.pdf", "Lentil curry", 3, 1),
		rankedSection("a.pdf", "Bean stew", 1, 2),
	}
	refined := []models.RefinedSection{
		{Document: "b.pdf", RefinedText: "Curry with lentils.", PageNumber: 3},
		{Document: "a.pdf", RefinedText: "Stew with beans.", PageNumber: 1},
	}

	r, err := a.Assemble(in, top, refined)
	require.NoError(t, err)

	assert.Equal(t, models.Metadata{
		InputDocuments:      []string{"a.pdf", "b.pdf"},
		Persona:             "chef",
		JobToBeDone:         "find vegetarian recipes",
		ProcessingTimestamp: "2025-07-10T12:30:00Z",
	}, r.Metadata)

	require.Len(t, r.ExtractedSections, 2)
	for i, s := range r.ExtractedSections {
		assert.Equal(t, i+1, s.ImportanceRank)
	}
	assert.Equal(t, models.ExtractedSection{
		Document: "b.pdf", SectionTitle: "Lentil curry", ImportanceRank: 1, PageNumber: 3,
	}, r.ExtractedSections[0])
	assert.Equal(t, refined, r.SubsectionAnalysis)
}

func TestAssembleRejectsInvalidInput(t *testing.T) {
	a := NewAssembler(fixedClock)
	refined := []models.RefinedSection{{}, {}}

	_, err := a.Assemble(Input{}, []models.RankedResult{rankedSection("a", "x", 1, 1)}, refined)
	assert.Error(t, err, "length mismatch")

	_, err = a.Assemble(Input{}, []models.RankedResult{
		rankedSection("a", "x", 1, 1),
		rankedSection("a", "y", 1, 3),
	}, refined)
	assert.Error(t, err, "gap in ranks")
}

func TestWriteShape(t *testing.T) {
	r, err := NewAssembler(fixedClock).Assemble(Input{Persona: "p", Task: "t"}, nil, nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, r))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.ElementsMatch(t, []string{"metadata", "extracted_sections", "subsection_analysis"}, keys(decoded))
	assert.Equal(t, []any{}, decoded["extracted_sections"])
	assert.Equal(t, []any{}, decoded["subsection_analysis"])

	meta := decoded["metadata"].(map[string]any)
	assert.ElementsMatch(t, []string{"input_documents", "persona", "job_to_be_done", "processing_timestamp"}, keys(meta))
	assert.Equal(t, []any{}, meta["input_documents"])

	assert.Contains(t, buf.String(), "\n  \"metadata\": {\n    \"input_documents\"")
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out.json")

	r, err := NewAssembler(fixedClock).Assemble(Input{Documents: []string{"a.pdf"}},
		[]models.RankedResult{rankedSection("a.pdf", "Intro & <setup>", 1, 1)},
		[]models.RefinedSection{{Document: "a.pdf", RefinedText: "Intro", PageNumber: 1}})
	require.NoError(t, err)
	require.NoError(t, WriteFile(path, r))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"section_title": "Intro & <setup>"`)

	var back models.Report
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, *r, back)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
