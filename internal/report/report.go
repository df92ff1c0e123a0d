// Package report assembles and writes the final triage report.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"doc-triage/internal/models"
)

// Input is the descriptive metadata of a run
type Input struct {
	Documents []string
	Persona   string
	Task      string
}

// Assembler builds reports. The clock is read once per report.
type Assembler struct {
	clock func() time.Time
}

// NewAssembler creates an assembler. A nil clock uses time.Now.
func NewAssembler(clock func() time.Time) *Assembler {
	if clock == nil {
		clock = time.Now
	}
	return &Assembler{clock: clock}
}

// Assemble builds the report from the selected top-K and their refinements.
// Ranks must run 1..K in order and there must be one refinement per rank.
func (a *Assembler) Assemble(in Input, top []models.RankedResult, refined []models.RefinedSection) (*models.Report, error) {
	if len(top) != len(refined) {
		return nil, fmt.Errorf("ranked and refined sections differ in length: %d vs %d", len(top), len(refined))
	}

	extracted := make([]models.ExtractedSection, len(top))
	for i, r := range top {
		if r.Rank != i+1 {
			return nil, fmt.Errorf("importance rank %d at position %d, expected %d", r.Rank, i, i+1)
		}
		extracted[i] = models.ExtractedSection{
			Document:       r.Section.Document,
			SectionTitle:   r.Section.Title,
			ImportanceRank: r.Rank,
			PageNumber:     r.Section.PageNumber,
		}
	}

	docs := make([]string, len(in.Documents))
	copy(docs, in.Documents)
	analysis := make([]models.RefinedSection, len(refined))
	copy(analysis, refined)

	return &models.Report{
		Metadata: models.Metadata{
			InputDocuments:      docs,
			Persona:             in.Persona,
			JobToBeDone:         in.Task,
			ProcessingTimestamp: a.clock().UTC().Format(time.RFC3339),
		},
		ExtractedSections:  extracted,
		SubsectionAnalysis: analysis,
	}, nil
}

// Write encodes the report as indented JSON
func Write(w io.Writer, r *models.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}

// WriteFile writes the report atomically. Parent directories are created as needed.
func WriteFile(path string, r *models.Report) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".report-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := Write(tmp, r); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("failed to set report permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to move report into place: %w", err)
	}
	return nil
}
