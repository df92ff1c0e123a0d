// Package ranking scores section candidates against a persona and task query.
package ranking

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"doc-triage/internal/embedding"
	"doc-triage/internal/models"
)

// QuerySeparator joins persona and task into one query string
const QuerySeparator = " | "

// Config holds ranker tunables
type Config struct {
	// Texts per EmbedBatch call when the embedder supports batching
	BatchSize int
	// Concurrent Embed calls otherwise
	Concurrency int
}

// DefaultConfig returns the standard ranker settings
func DefaultConfig() Config {
	return Config{BatchSize: 32, Concurrency: 4}
}

// Ranker orders candidates by cosine similarity to the query embedding
type Ranker struct {
	embedder embedding.Embedder
	cfg      Config
	log      *slog.Logger
}

// NewRanker returns a Ranker over embedder. Zero batch size and
// concurrency fall back to 32 and 1; a nil log uses slog.Default.
func NewRanker(embedder embedding.Embedder, cfg Config, log *slog.Logger) *Ranker {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 32
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if log == nil {
		log = slog.Default()
	}
	return &Ranker{embedder: embedder, cfg: cfg, log: log}
}

// Query builds the text that candidates are compared against
func Query(persona, task string) string {
	return persona + QuerySeparator + task
}

// Rank scores every candidate and returns them sorted by descending score.
// Equal scores keep their input order. Any embedding failure aborts the
// ranking with an *models.EmbeddingError and no partial result.
func (r *Ranker) Rank(ctx context.Context, sections []models.SectionCandidate, persona, task string) ([]models.ScoredSection, error) {
	if len(sections) == 0 {
		return []models.ScoredSection{}, nil
	}

	startTime := time.Now()
	query := Query(persona, task)

	texts := make([]string, len(sections))
	for i, s := range sections {
		texts[i] = s.Text
	}

	if p, ok := r.embedder.(embedding.Preparer); ok {
		corpus := append(append([]string{}, texts...), query)
		if err := p.Prepare(corpus); err != nil {
			return nil, &models.EmbeddingError{Stage: models.StagePrepare, Index: -1, Err: err}
		}
	}

	queryVec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, &models.EmbeddingError{Stage: models.StageQuery, Index: -1, Err: err}
	}

	vectors, err := r.embedCandidates(ctx, texts)
	if err != nil {
		return nil, err
	}

	scored := make([]models.ScoredSection, len(sections))
	for i, s := range sections {
		score, err := embedding.Cosine(queryVec, vectors[i])
		if err != nil {
			return nil, &models.EmbeddingError{Stage: models.StageCandidate, Index: i, Err: err}
		}
		scored[i] = models.ScoredSection{Section: s, Score: score, Order: i}
	}

	Sort(scored)

	r.log.Info("ranked sections",
		"sections", len(scored),
		"top_score", scored[0].Score,
		"duration_ms", time.Since(startTime).Milliseconds(),
	)
	return scored, nil
}

func (r *Ranker) embedCandidates(ctx context.Context, texts []string) ([][]float64, error) {
	if b, ok := r.embedder.(embedding.BatchEmbedder); ok {
		vectors := make([][]float64, 0, len(texts))
		for start := 0; start < len(texts); start += r.cfg.BatchSize {
			end := min(start+r.cfg.BatchSize, len(texts))
			batch, err := b.EmbedBatch(ctx, texts[start:end])
			if err != nil {
				return nil, &models.EmbeddingError{Stage: models.StageCandidate, Index: start, Err: err}
			}
			if len(batch) != end-start {
				return nil, &models.EmbeddingError{
					Stage: models.StageCandidate,
					Index: start,
					Err:   fmt.Errorf("expected %d vectors, got %d", end-start, len(batch)),
				}
			}
			vectors = append(vectors, batch...)
		}
		return vectors, nil
	}

	// Each goroutine writes only its own slot; Wait is the barrier before scoring.
	vectors := make([][]float64, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)
	for i, text := range texts {
		g.Go(func() error {
			vec, err := r.embedder.Embed(gctx, text)
			if err != nil {
				return &models.EmbeddingError{Stage: models.StageCandidate, Index: i, Err: err}
			}
			vectors[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

// Sort orders scored sections by descending score, keeping input order for ties.
// Sorting an already sorted slice leaves it unchanged.
func Sort(scored []models.ScoredSection) {
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
}

// Top returns the first k sections with dense ranks starting at 1.
func Top(scored []models.ScoredSection, k int) []models.RankedResult {
	if k <= 0 {
		return []models.RankedResult{}
	}
	k = min(k, len(scored))

	top := make([]models.RankedResult, k)
	for i := 0; i < k; i++ {
		top[i] = models.RankedResult{ScoredSection: scored[i], Rank: i + 1}
	}
	return top
}
