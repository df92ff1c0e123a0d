package ranking

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doc-triage/internal/embedding"
	"doc-triage/internal/models"
)

// letterEmbedder maps text to a 26-dimensional letter histogram.
type letterEmbedder struct {
	failOn string
	calls  atomic.Int32
}

func (e *letterEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	e.calls.Add(1)
	if e.failOn != "" && text == e.failOn {
		return nil, errors.New("backend unavailable")
	}
	vec := make([]float64, 26)
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' {
			vec[r-'a']++
		}
	}
	return vec, nil
}

type batchLetterEmbedder struct {
	letterEmbedder
	batches [][]string
}

func (e *batchLetterEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	e.batches = append(e.batches, texts)
	out := make([][]float64, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func candidates(texts ...string) []models.SectionCandidate {
	out := make([]models.SectionCandidate, len(texts))
	for i, t := range texts {
		out[i] = models.SectionCandidate{Document: "doc.pdf", PageNumber: 1, Title: t, Text: t}
	}
	return out
}

func TestRankOrdersByDescendingScore(t *testing.T) {
	r := NewRanker(&letterEmbedder{}, DefaultConfig(), quietLogger())
	sections := candidates("zzzz", "chef vegetarian", "xyz", "recipes for a chef", "qqq")

	scored, err := r.Rank(context.Background(), sections, "chef", "find vegetarian recipes")
	require.NoError(t, err)
	require.Len(t, scored, len(sections))

	for i := 1; i < len(scored); i++ {
		assert.GreaterOrEqual(t, scored[i-1].Score, scored[i].Score)
	}
	for _, s := range scored {
		assert.GreaterOrEqual(t, s.Score, -1.0)
		assert.LessOrEqual(t, s.Score, 1.0)
		assert.Equal(t, sections[s.Order], s.Section)
	}
}

func TestRankIdenticalQueryScoresHighest(t *testing.T) {
	persona, task := "chef", "find vegetarian recipes"
	sections := candidates("grilled steak", Query(persona, task), "vegetable soup", "dessert ideas")

	for name, emb := range map[string]embedding.Embedder{
		"letters": &letterEmbedder{},
		"tfidf":   embedding.NewTFIDFEmbedder(),
	} {
		t.Run(name, func(t *testing.T) {
			scored, err := NewRanker(emb, DefaultConfig(), quietLogger()).Rank(context.Background(), sections, persona, task)
			require.NoError(t, err)
			assert.Equal(t, 1, scored[0].Order)
			assert.InDelta(t, 1.0, scored[0].Score, 1e-9)
		})
	}
}

func TestRankTiesKeepInputOrder(t *testing.T) {
	r := NewRanker(&letterEmbedder{}, Config{Concurrency: 3}, quietLogger())
	sections := candidates("abc", "cab", "bca", "zzz", "acb")

	scored, err := r.Rank(context.Background(), sections, "abc", "")
	require.NoError(t, err)

	var orders []int
	for _, s := range scored {
		orders = append(orders, s.Order)
	}
	assert.Equal(t, []int{0, 1, 2, 4, 3}, orders)
}

func TestSortIsIdempotent(t *testing.T) {
	r := NewRanker(&letterEmbedder{}, DefaultConfig(), quietLogger())
	scored, err := r.Rank(context.Background(), candidates("aa", "ab", "ba", "bb", "cc", "ab"), "ab", "")
	require.NoError(t, err)

	again := append([]models.ScoredSection(nil), scored...)
	Sort(again)
	assert.Equal(t, scored, again)
}

func TestRankEmbeddingFailureIsFatal(t *testing.T) {
	tests := []struct {
		name      string
		failOn    string
		wantStage models.EmbeddingStage
		wantIndex int
	}{
		{name: "query", failOn: Query("p", "t"), wantStage: models.StageQuery, wantIndex: -1},
		{name: "candidate", failOn: "second", wantStage: models.StageCandidate, wantIndex: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRanker(&letterEmbedder{failOn: tt.failOn}, Config{Concurrency: 1}, quietLogger())
			scored, err := r.Rank(context.Background(), candidates("first", "second", "third"), "p", "t")
			assert.Nil(t, scored)

			var embErr *models.EmbeddingError
			require.ErrorAs(t, err, &embErr)
			assert.Equal(t, tt.wantStage, embErr.Stage)
			assert.Equal(t, tt.wantIndex, embErr.Index)
		})
	}
}

func TestRankUsesBatches(t *testing.T) {
	emb := &batchLetterEmbedder{}
	r := NewRanker(emb, Config{BatchSize: 2}, quietLogger())

	scored, err := r.Rank(context.Background(), candidates("a", "b", "c", "d", "e"), "a", "")
	require.NoError(t, err)
	assert.Len(t, scored, 5)
	assert.Len(t, emb.batches, 3)
	assert.Equal(t, []string{"e"}, emb.batches[2])
}

func TestRankDimensionMismatch(t *testing.T) {
	r := NewRanker(embedFunc(func(text string) []float64 {
		if text == "short" {
			return []float64{1}
		}
		return []float64{1, 0}
	}), DefaultConfig(), quietLogger())

	_, err := r.Rank(context.Background(), candidates("ok", "short"), "q", "")
	var embErr *models.EmbeddingError
	require.ErrorAs(t, err, &embErr)
	assert.Equal(t, 1, embErr.Index)
}

func TestRankEmpty(t *testing.T) {
	emb := &letterEmbedder{}
	scored, err := NewRanker(emb, DefaultConfig(), quietLogger()).Rank(context.Background(), nil, "p", "t")
	require.NoError(t, err)
	assert.Empty(t, scored)
	assert.Zero(t, emb.calls.Load())
}

func TestTop(t *testing.T) {
	scored := []models.ScoredSection{
		{Score: 0.9, Order: 2}, {Score: 0.5, Order: 0}, {Score: 0.1, Order: 1},
	}

	top := Top(scored, 2)
	require.Len(t, top, 2)
	assert.Equal(t, 1, top[0].Rank)
	assert.Equal(t, 2, top[1].Rank)
	assert.Equal(t, 2, top[0].Order)

	assert.Len(t, Top(scored, 10), 3)
	assert.Empty(t, Top(scored, 0))
	assert.Empty(t, Top(nil, 5))
}

type embedFunc func(text string) []float64

func (f embedFunc) Embed(_ context.Context, text string) ([]float64, error) {
	return f(text), nil
}
