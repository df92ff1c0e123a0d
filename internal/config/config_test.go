package config

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doc-triage/internal/models"
)

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 5.0, cfg.Extract.LineTolerance)
	assert.Equal(t, 5, cfg.Ranking.TopK)
	assert.Equal(t, 100, cfg.Refine.MaxLength)
	assert.Equal(t, "ollama", cfg.Embedder.Type)
	assert.Equal(t, "all-minilm", cfg.Embedder.Model)
	assert.NoError(t, cfg.Validate())
}

func TestLoadPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
ranking:
  top_k: 8
embedder:
  type: tfidf
summarizer:
  type: ollama
  model: phi3
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Ranking.TopK)
	assert.Equal(t, 32, cfg.Ranking.BatchSize)
	assert.Equal(t, "tfidf", cfg.Embedder.Type)
	assert.Equal(t, "phi3", cfg.Summarizer.Model)
	assert.Equal(t, 120, cfg.Summarizer.TimeoutSecs)
	assert.NoError(t, cfg.Validate())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("TRIAGE_TOP_K", "3")
	t.Setenv("TRIAGE_LINE_TOLERANCE", "2.5")
	t.Setenv("OLLAMA_HOST", "http://gpu-box:11434")
	t.Setenv("DATABASE_URL", "postgres://triage@localhost/triage")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Ranking.TopK)
	assert.Equal(t, 2.5, cfg.Extract.LineTolerance)
	assert.Equal(t, "http://gpu-box:11434", cfg.Embedder.Host)
	assert.Equal(t, "http://gpu-box:11434", cfg.Summarizer.Host)
	assert.Equal(t, "postgres://triage@localhost/triage", cfg.Database.URL)
}

func TestLoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ranking: [unclosed"), 0o644))

	_, err := Load(path)
	var cfgErr *models.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*AppConfig)
		wantField string
	}{
		{name: "zero tolerance", mutate: func(c *AppConfig) { c.Extract.LineTolerance = 0 }, wantField: "extract.line_tolerance"},
		{name: "negative top k", mutate: func(c *AppConfig) { c.Ranking.TopK = -1 }, wantField: "ranking.top_k"},
		{name: "zero max length", mutate: func(c *AppConfig) { c.Refine.MaxLength = 0 }, wantField: "refine.max_length"},
		{name: "unknown embedder", mutate: func(c *AppConfig) { c.Embedder.Type = "word2vec" }, wantField: "embedder.type"},
		{name: "ollama summarizer without model", mutate: func(c *AppConfig) { c.Summarizer.Type = "ollama" }, wantField: "summarizer.model"},
		{name: "bad log level", mutate: func(c *AppConfig) { c.Log.Level = "loud" }, wantField: "log.level"},
		{name: "bad log format", mutate: func(c *AppConfig) { c.Log.Format = "xml" }, wantField: "log.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			var cfgErr *models.ConfigError
			require.ErrorAs(t, cfg.Validate(), &cfgErr)
			assert.Equal(t, tt.wantField, cfgErr.Field)
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	cfg := Default()
	cfg.Ranking.TopK = 7
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, loaded.Ranking.TopK)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&buf, LogConfig{Level: "warn", Format: "json"})
	log.Info("hidden")
	log.Warn("shown", "document", "a.pdf")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "shown", entry["msg"])
	assert.Equal(t, "a.pdf", entry["document"])
}
