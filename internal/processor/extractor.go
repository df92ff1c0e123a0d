// Package processor turns document pages into line-level section candidates.
package processor

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"time"

	"doc-triage/internal/models"
	"doc-triage/internal/source"
	"doc-triage/internal/textutil"
)

const (
	// Number of runes of a line kept as its title
	DefaultTitleLength = 40
)

// Opener opens a document from a path or identifier
type Opener interface {
	Open(path string) (source.Document, error)
}

// ExtractorConfig holds tunables for section extraction
type ExtractorConfig struct {
	LineTolerance float64
	TitleLength   int
	// Lines with fewer runes than MinTextLength are dropped. Zero keeps every line.
	MinTextLength int
}

// DefaultExtractorConfig returns the standard extraction settings
func DefaultExtractorConfig() ExtractorConfig {
	return ExtractorConfig{
		LineTolerance: DefaultLineTolerance,
		TitleLength:   DefaultTitleLength,
	}
}

// ExtractResult holds the candidates of every readable document and the
// errors of the documents that were skipped.
type ExtractResult struct {
	Sections []models.SectionCandidate
	Failures []*models.DocumentReadError
}

// Extractor converts documents into section candidates, one per text line
type Extractor struct {
	opener Opener
	cfg    ExtractorConfig
	log    *slog.Logger
}

// NewExtractor creates a new section extractor
func NewExtractor(opener Opener, cfg ExtractorConfig, log *slog.Logger) (*Extractor, error) {
	if cfg.TitleLength == 0 {
		cfg.TitleLength = DefaultTitleLength
	}
	if cfg.TitleLength < 0 {
		return nil, &models.ConfigError{Field: "title_length", Message: "must be positive"}
	}
	if cfg.MinTextLength < 0 {
		return nil, &models.ConfigError{Field: "min_text_length", Message: "must not be negative"}
	}
	// Validate the tolerance up front so that a bad value never reaches a page.
	if _, err := GroupLines(nil, cfg.LineTolerance); err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	return &Extractor{opener: opener, cfg: cfg, log: log}, nil
}

// Extract reads every document in order. A document that fails to open or
// decode contributes no candidates and is reported in Failures; the remaining
// documents are still processed. Only context cancellation aborts the batch.
func (e *Extractor) Extract(ctx context.Context, paths []string) (ExtractResult, error) {
	var result ExtractResult
	startTime := time.Now()

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return ExtractResult{}, err
		}

		sections, err := e.ExtractDocument(ctx, path)
		if err != nil {
			var readErr *models.DocumentReadError
			if !errors.As(err, &readErr) {
				return ExtractResult{}, err
			}
			e.log.Warn("skipping document", "document", readErr.Document, "page", readErr.Page, "error", readErr.Err)
			result.Failures = append(result.Failures, readErr)
			continue
		}
		result.Sections = append(result.Sections, sections...)
	}

	e.log.Info("extraction complete",
		"documents", len(paths),
		"failed", len(result.Failures),
		"sections", len(result.Sections),
		"duration_ms", time.Since(startTime).Milliseconds(),
	)
	return result, nil
}

// ExtractDocument returns the candidates of a single document, in page then line order.
func (e *Extractor) ExtractDocument(ctx context.Context, path string) ([]models.SectionCandidate, error) {
	docID := filepath.Base(path)

	doc, err := e.opener.Open(path)
	if err != nil {
		return nil, &models.DocumentReadError{Document: docID, Err: err}
	}
	defer doc.Close()

	log := e.log.With("document", docID)
	var sections []models.SectionCandidate

	for page := 1; page <= doc.NumPages(); page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		words, err := doc.PageWords(page)
		if err != nil {
			return nil, &models.DocumentReadError{Document: docID, Page: page, Err: err}
		}

		lines, err := GroupLines(words, e.cfg.LineTolerance)
		if err != nil {
			var cfgErr *models.ConfigError
			if errors.As(err, &cfgErr) {
				return nil, err
			}
			return nil, &models.DocumentReadError{Document: docID, Page: page, Err: err}
		}

		for _, line := range lines {
			if e.cfg.MinTextLength > 0 && textutil.RuneLen(line.Text) < e.cfg.MinTextLength {
				continue
			}
			sections = append(sections, models.SectionCandidate{
				Document:   docID,
				PageNumber: page,
				Title:      textutil.Truncate(line.Text, e.cfg.TitleLength),
				Text:       line.Text,
				FontSize:   line.FontSize,
			})
		}
		log.Debug("processed page", "page", page, "words", len(words), "lines", len(lines))
	}

	return sections, nil
}
