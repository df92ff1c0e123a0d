// Package refine condenses the text of top-ranked sections.
package refine

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"doc-triage/internal/llm"
	"doc-triage/internal/models"
	"doc-triage/internal/textutil"
)

const (
	DefaultMaxLength = 100
	// Minimum summary length requested from the summarizer
	MinLength = 30
	// Hard cap on the text sent to the summarizer
	DefaultInputCap = 1000
)

// Outcome records how a refined text was produced
type Outcome int

const (
	OutcomeSummarized Outcome = iota
	// Text was already short enough and is returned unchanged
	OutcomePassthrough
	// The summarizer failed or returned nothing; the text was truncated locally
	OutcomeFallback
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSummarized:
		return "summarized"
	case OutcomePassthrough:
		return "passthrough"
	case OutcomeFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// Refinement is the result for one ranked section
type Refinement struct {
	Section models.RefinedSection
	Outcome Outcome
	// Set when Outcome is OutcomeFallback
	Err *models.SummarizationError
}

// Stats counts refinement outcomes
type Stats struct {
	Summarized  int `json:"summarized"`
	Passthrough int `json:"passthrough"`
	Fallback    int `json:"fallback"`
}

// Config holds refiner tunables
type Config struct {
	MaxLength   int
	InputCap    int
	Concurrency int
}

// DefaultConfig returns the standard refiner settings
func DefaultConfig() Config {
	return Config{MaxLength: DefaultMaxLength, InputCap: DefaultInputCap, Concurrency: 1}
}

// Refiner produces one refined section per ranked result
type Refiner struct {
	summarizer llm.Summarizer
	cfg        Config
	log        *slog.Logger
}

// NewRefiner validates cfg and returns a Refiner. A non-positive MaxLength
// is a ConfigError; the other zero fields take their defaults.
func NewRefiner(summarizer llm.Summarizer, cfg Config, log *slog.Logger) (*Refiner, error) {
	if cfg.MaxLength <= 0 {
		return nil, &models.ConfigError{Field: "max_length", Message: "must be positive"}
	}
	if cfg.InputCap <= 0 {
		cfg.InputCap = DefaultInputCap
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if log == nil {
		log = slog.Default()
	}
	return &Refiner{summarizer: summarizer, cfg: cfg, log: log}, nil
}

// Refine condenses each section in order. Summarizer failures never abort
// the batch; they fall back to the first MaxLength runes of the text.
func (r *Refiner) Refine(ctx context.Context, top []models.RankedResult) ([]Refinement, Stats) {
	results := make([]Refinement, len(top))

	g := new(errgroup.Group)
	g.SetLimit(r.cfg.Concurrency)
	for i, item := range top {
		g.Go(func() error {
			results[i] = r.refineOne(ctx, item.Section)
			return nil
		})
	}
	g.Wait()

	var stats Stats
	for _, res := range results {
		switch res.Outcome {
		case OutcomeSummarized:
			stats.Summarized++
		case OutcomePassthrough:
			stats.Passthrough++
		case OutcomeFallback:
			stats.Fallback++
		}
	}

	if stats.Fallback > 0 {
		r.log.Warn("summarization fallbacks used", "fallbacks", stats.Fallback, "sections", len(top))
	}
	r.log.Info("refined sections",
		"summarized", stats.Summarized,
		"passthrough", stats.Passthrough,
		"fallback", stats.Fallback,
	)
	return results, stats
}

func (r *Refiner) refineOne(ctx context.Context, s models.SectionCandidate) Refinement {
	out := Refinement{
		Section: models.RefinedSection{Document: s.Document, PageNumber: s.PageNumber},
	}

	if textutil.RuneLen(s.Text) <= r.cfg.MaxLength {
		out.Section.RefinedText = s.Text
		out.Outcome = OutcomePassthrough
		return out
	}

	input := textutil.Truncate(s.Text, r.cfg.InputCap)
	summary, err := r.summarizer.Summarize(ctx, input, r.cfg.MaxLength, MinLength)
	if err == nil && strings.TrimSpace(summary) == "" {
		err = errors.New("empty summary")
	}
	if err != nil {
		r.log.Debug("summarization failed", "document", s.Document, "page", s.PageNumber, "error", err)
		out.Section.RefinedText = textutil.Truncate(s.Text, r.cfg.MaxLength)
		out.Outcome = OutcomeFallback
		out.Err = &models.SummarizationError{Document: s.Document, PageNumber: s.PageNumber, Err: err}
		return out
	}

	out.Section.RefinedText = strings.TrimSpace(summary)
	out.Outcome = OutcomeSummarized
	return out
}

// Sections extracts the refined sections in order
func Sections(refinements []Refinement) []models.RefinedSection {
	out := make([]models.RefinedSection, len(refinements))
	for i, r := range refinements {
		out[i] = r.Section
	}
	return out
}
