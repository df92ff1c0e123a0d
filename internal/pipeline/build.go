package pipeline

import (
	"fmt"
	"log/slog"

	"doc-triage/internal/config"
	"doc-triage/internal/embedding"
	"doc-triage/internal/llm"
	"doc-triage/internal/processor"
	"doc-triage/internal/ranking"
	"doc-triage/internal/refine"
)

// Backends holds the capability implementations selected by configuration
type Backends struct {
	Embedder   embedding.Embedder
	Summarizer llm.Summarizer
	Stats      *llm.Stats
}

// NewBackends constructs the embedder and summarizer named in cfg. Summarizer
// latency is recorded into stats, which may be shared across backends. The
// TF-IDF embedder is fitted per run, so each concurrent run needs its own Backends.
func NewBackends(cfg *config.AppConfig, stats *llm.Stats) (*Backends, error) {
	b := &Backends{Stats: stats}

	switch cfg.Embedder.Type {
	case "tfidf":
		b.Embedder = embedding.NewTFIDFEmbedder()
	case "ollama":
		e, err := embedding.NewOllamaEmbedder(cfg.Embedder.Host, cfg.Embedder.Model)
		if err != nil {
			return nil, fmt.Errorf("failed to create embedder: %w", err)
		}
		e.Timeout = cfg.EmbedderTimeout()
		e.MaxRetries = cfg.Embedder.MaxRetries
		e.BatchSize = cfg.Ranking.BatchSize
		b.Embedder = e
	default:
		return nil, fmt.Errorf("unknown embedder type %q", cfg.Embedder.Type)
	}

	switch cfg.Summarizer.Type {
	case "frequency":
		b.Summarizer = llm.NewFrequencySummarizer(stats)
	case "ollama":
		s, err := llm.NewOllamaSummarizer(cfg.Summarizer.Host, cfg.Summarizer.Model, stats)
		if err != nil {
			return nil, fmt.Errorf("failed to create summarizer: %w", err)
		}
		s.Timeout = cfg.SummarizerTimeout()
		b.Summarizer = s
	default:
		return nil, fmt.Errorf("unknown summarizer type %q", cfg.Summarizer.Type)
	}

	return b, nil
}

// Build assembles a pipeline from validated configuration.
func Build(cfg *config.AppConfig, backends *Backends, opener processor.Opener, opts Options, log *slog.Logger) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	extractor, err := processor.NewExtractor(opener, processor.ExtractorConfig{
		LineTolerance: cfg.Extract.LineTolerance,
		TitleLength:   cfg.Extract.TitleLength,
		MinTextLength: cfg.Extract.MinTextLength,
	}, log)
	if err != nil {
		return nil, err
	}

	ranker := ranking.NewRanker(backends.Embedder, ranking.Config{
		BatchSize:   cfg.Ranking.BatchSize,
		Concurrency: cfg.Ranking.Concurrency,
	}, log)

	refiner, err := refine.NewRefiner(backends.Summarizer, refine.Config{
		MaxLength:   cfg.Refine.MaxLength,
		InputCap:    cfg.Refine.InputCap,
		Concurrency: cfg.Refine.Concurrency,
	}, log)
	if err != nil {
		return nil, err
	}

	if opts.TopK == 0 {
		opts.TopK = cfg.Ranking.TopK
	}
	return New(extractor, ranker, refiner, opts, log)
}

// Factory builds a fresh pipeline for every job that reads documents through opener
type Factory func(opener processor.Opener, opts Options) (*Pipeline, error)

// NewFactory returns a Factory bound to cfg. All pipelines share stats.
func NewFactory(cfg *config.AppConfig, stats *llm.Stats, store RunStore, log *slog.Logger) Factory {
	return func(opener processor.Opener, opts Options) (*Pipeline, error) {
		backends, err := NewBackends(cfg, stats)
		if err != nil {
			return nil, err
		}
		if opts.Store == nil {
			opts.Store = store
		}
		return Build(cfg, backends, opener, opts, log)
	}
}
