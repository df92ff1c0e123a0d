// Package pipeline runs extraction, ranking, refinement and report assembly as one job.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"doc-triage/internal/models"
	"doc-triage/internal/processor"
	"doc-triage/internal/ranking"
	"doc-triage/internal/refine"
	"doc-triage/internal/report"
)

// DefaultTopK is the number of sections kept for refinement
const DefaultTopK = 5

// RunStore persists completed runs
type RunStore interface {
	SaveRun(ctx context.Context, r *models.Report, top []models.RankedResult) (string, error)
}

// Request describes one triage job
type Request struct {
	// Filenames as listed by the caller, reported unchanged in the metadata
	Documents []string
	// Locations the documents are opened from, one per entry in Documents
	Paths   []string
	Persona string
	Task    string
}

// Result carries the report and the intermediate data that produced it
type Result struct {
	Report      *models.Report
	Ranked      []models.ScoredSection
	Top         []models.RankedResult
	Refinements []refine.Refinement
	RefineStats refine.Stats
	Failures    []*models.DocumentReadError
	// Set when the run was saved to a RunStore
	RunID    string
	Duration time.Duration
}

// Options configures a Pipeline
type Options struct {
	TopK int
	// Abort the run when any document fails to read
	Strict bool
	Store  RunStore
	Clock  func() time.Time
}

// Pipeline wires the stages together
type Pipeline struct {
	extractor *processor.Extractor
	ranker    *ranking.Ranker
	refiner   *refine.Refiner
	assembler *report.Assembler
	opts      Options
	log       *slog.Logger
}

func New(extractor *processor.Extractor, ranker *ranking.Ranker, refiner *refine.Refiner, opts Options, log *slog.Logger) (*Pipeline, error) {
	if opts.TopK == 0 {
		opts.TopK = DefaultTopK
	}
	if opts.TopK < 0 {
		return nil, &models.ConfigError{Field: "top_k", Message: "must be positive"}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{
		extractor: extractor,
		ranker:    ranker,
		refiner:   refiner,
		assembler: report.NewAssembler(opts.Clock),
		opts:      opts,
		log:       log,
	}, nil
}

// Run executes a job. It returns a complete report or an error naming the
// failing stage; unreadable documents are skipped unless Strict is set.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	startTime := time.Now()
	log := p.log.With("persona", req.Persona)
	log.Info("processing job", "documents", len(req.Paths))

	extracted, err := p.extractor.Extract(ctx, req.Paths)
	if err != nil {
		return nil, fmt.Errorf("extraction failed: %w", err)
	}
	if p.opts.Strict && len(extracted.Failures) > 0 {
		errs := make([]error, len(extracted.Failures))
		for i, f := range extracted.Failures {
			errs[i] = f
		}
		return nil, fmt.Errorf("extraction failed: %w", errors.Join(errs...))
	}

	ranked, err := p.ranker.Rank(ctx, extracted.Sections, req.Persona, req.Task)
	if err != nil {
		return nil, fmt.Errorf("ranking failed: %w", err)
	}
	top := ranking.Top(ranked, p.opts.TopK)

	refinements, stats := p.refiner.Refine(ctx, top)
	// Refine reports cancellation only as fallbacks.
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("refinement interrupted: %w", err)
	}

	rep, err := p.assembler.Assemble(report.Input{
		Documents: req.Documents,
		Persona:   req.Persona,
		Task:      req.Task,
	}, top, refine.Sections(refinements))
	if err != nil {
		return nil, fmt.Errorf("report assembly failed: %w", err)
	}

	result := &Result{
		Report:      rep,
		Ranked:      ranked,
		Top:         top,
		Refinements: refinements,
		RefineStats: stats,
		Failures:    extracted.Failures,
	}

	if p.opts.Store != nil {
		id, err := p.opts.Store.SaveRun(ctx, rep, top)
		if err != nil {
			log.Error("failed to save run", "error", err)
		} else {
			result.RunID = id
		}
	}

	result.Duration = time.Since(startTime)
	log.Info("completed job",
		"sections", len(ranked),
		"selected", len(top),
		"failed_documents", len(extracted.Failures),
		"fallbacks", stats.Fallback,
		"duration_ms", result.Duration.Milliseconds(),
	)
	return result, nil
}

func validateRequest(req Request) error {
	if req.Persona == "" {
		return &models.ConfigError{Field: "persona", Message: "is required"}
	}
	if req.Task == "" {
		return &models.ConfigError{Field: "task", Message: "is required"}
	}
	if len(req.Documents) != len(req.Paths) {
		return &models.ConfigError{
			Field:   "documents",
			Message: fmt.Sprintf("%d names for %d paths", len(req.Documents), len(req.Paths)),
		}
	}
	return nil
}
