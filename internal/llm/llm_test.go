package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrequencySummarizer(t *testing.T) {
	s := NewFrequencySummarizer(nil)
	text := "Lentil soup is a hearty vegetarian dish. The weather was cold. " +
		"Simmer lentils with carrots for a vegetarian soup. Serve hot."

	out, err := s.Summarize(context.Background(), text, 100, 30)
	require.NoError(t, err)
	assert.NotEmpty(t, out)
	assert.LessOrEqual(t, len([]rune(out)), 100)
	assert.Contains(t, out, "lentils")

	again, err := s.Summarize(context.Background(), text, 100, 30)
	require.NoError(t, err)
	assert.Equal(t, out, again)
}

func TestFrequencySummarizerKeepsOrder(t *testing.T) {
	s := NewFrequencySummarizer(nil)
	out, err := s.Summarize(context.Background(), "Alpha beta. Gamma delta.", 100, 0)
	require.NoError(t, err)
	assert.Equal(t, "Alpha beta. Gamma delta.", out)
}

func TestFrequencySummarizerClipsLongSentence(t *testing.T) {
	s := NewFrequencySummarizer(nil)
	long := strings.Repeat("word ", 60)
	out, err := s.Summarize(context.Background(), long, 50, 10)
	require.NoError(t, err)
	assert.Equal(t, long[:50], out)
}

func TestFrequencySummarizerEmpty(t *testing.T) {
	out, err := NewFrequencySummarizer(nil).Summarize(context.Background(), "   ", 100, 30)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestOllamaSummarizer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)

		var req struct {
			Model   string         `json:"model"`
			Prompt  string         `json:"prompt"`
			Options map[string]any `json:"options"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "phi3", req.Model)
		assert.Contains(t, req.Prompt, "at most 100 characters")
		assert.Contains(t, req.Prompt, "cook the beans")
		assert.EqualValues(t, 0, req.Options["temperature"])

		w.Header().Set("Content-Type", "application/x-ndjson")
		enc := json.NewEncoder(w)
		enc.Encode(map[string]any{"model": "phi3", "response": " Cook beans", "done": false})
		enc.Encode(map[string]any{"model": "phi3", "response": " slowly.", "done": true})
	}))
	defer srv.Close()

	stats := NewStats(time.Hour)
	s, err := NewOllamaSummarizer(srv.URL, "phi3", stats)
	require.NoError(t, err)

	out, err := s.Summarize(context.Background(), "First cook the beans then wait", 100, 30)
	require.NoError(t, err)
	assert.Equal(t, "Cook beans slowly.", out)
	assert.Equal(t, 1, stats.Snapshot().Count)
}

func TestOllamaSummarizerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "model not found"})
	}))
	defer srv.Close()

	stats := NewStats(time.Hour)
	s, err := NewOllamaSummarizer(srv.URL, "missing", stats)
	require.NoError(t, err)

	_, err = s.Summarize(context.Background(), "text", 100, 30)
	assert.Error(t, err)

	snap := stats.Snapshot()
	assert.Equal(t, 1, snap.Count)
	assert.Equal(t, 1, snap.Errors)
	assert.InDelta(t, 1.0, snap.ErrorRate, 1e-9)
}

func TestStats(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewStats(time.Minute)
	s.now = func() time.Time { return now }

	for _, ms := range []int64{10, 20, 30, 40} {
		s.Record(ms, nil)
	}
	s.Record(50, errors.New("model unavailable"))
	snap := s.Snapshot()
	assert.Equal(t, 5, snap.Count)
	assert.Equal(t, 1, snap.Errors)
	assert.InDelta(t, 0.2, snap.ErrorRate, 1e-9)
	assert.Equal(t, int64(10), snap.MinMs)
	assert.Equal(t, int64(50), snap.MaxMs)
	assert.InDelta(t, 30.0, snap.AvgMs, 1e-9)
	assert.InDelta(t, 30.0, snap.P50Ms, 1e-9)
	assert.InDelta(t, 48.0, snap.P95Ms, 1e-9)

	now = now.Add(2 * time.Minute)
	assert.Equal(t, 0, s.Snapshot().Count, "samples older than the window are pruned")

	var nilStats *Stats
	nilStats.Record(5, errors.New("ignored"))
	assert.Equal(t, StatsSnapshot{}, nilStats.Snapshot())
}
