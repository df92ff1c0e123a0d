// Package config loads application settings from YAML and the environment.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"doc-triage/internal/models"
)

// ExtractConfig configures line grouping and section extraction.
type ExtractConfig struct {
	LineTolerance float64 `yaml:"line_tolerance"`
	TitleLength   int     `yaml:"title_length"`
	MinTextLength int     `yaml:"min_text_length"`
}

// RankingConfig configures candidate scoring and selection.
type RankingConfig struct {
	TopK        int `yaml:"top_k"`
	BatchSize   int `yaml:"batch_size"`
	Concurrency int `yaml:"concurrency"`
}

// RefineConfig configures summarization of the selected sections.
type RefineConfig struct {
	MaxLength   int `yaml:"max_length"`
	InputCap    int `yaml:"input_cap"`
	Concurrency int `yaml:"concurrency"`
}

// EmbedderConfig selects and configures the embedding backend.
type EmbedderConfig struct {
	// "ollama" or "tfidf"
	Type        string `yaml:"type"`
	Host        string `yaml:"host"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries"`
}

// SummarizerConfig selects and configures the summarization backend.
type SummarizerConfig struct {
	// "ollama" or "frequency"
	Type        string `yaml:"type"`
	Host        string `yaml:"host"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// DatabaseConfig enables run history when URL is set.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr           string `yaml:"addr"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Extract    ExtractConfig    `yaml:"extract"`
	Ranking    RankingConfig    `yaml:"ranking"`
	Refine     RefineConfig     `yaml:"refine"`
	Embedder   EmbedderConfig   `yaml:"embedder"`
	Summarizer SummarizerConfig `yaml:"summarizer"`
	Database   DatabaseConfig   `yaml:"database"`
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
}

// Load reads a config from path and applies environment overrides.
// A missing file, or an empty path, yields the defaults.
func Load(path string) (*AppConfig, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, &models.ConfigError{Field: "config", Message: err.Error()}
			}
		}
	}

	applyEnv(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

// Save writes the config to path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Default returns the built-in configuration.
func Default() *AppConfig {
	return &AppConfig{
		Extract:    ExtractConfig{LineTolerance: 5, TitleLength: 40},
		Ranking:    RankingConfig{TopK: 5, BatchSize: 32, Concurrency: 4},
		Refine:     RefineConfig{MaxLength: 100, InputCap: 1000, Concurrency: 1},
		Embedder:   EmbedderConfig{Type: "ollama", Model: "all-minilm", TimeoutSecs: 30, MaxRetries: 3},
		Summarizer: SummarizerConfig{Type: "frequency", TimeoutSecs: 120},
		Server:     ServerConfig{Addr: ":8090", MaxUploadBytes: 52428800}, // 50MB
		Log:        LogConfig{Level: "info", Format: "json"},
	}
}

// applyDefaults fills fields left empty by a partial config file.
// Line tolerance and max length are left alone so that Validate reports them.
func applyDefaults(cfg *AppConfig) {
	def := Default()
	if cfg.Extract.TitleLength == 0 {
		cfg.Extract.TitleLength = def.Extract.TitleLength
	}
	if cfg.Ranking.BatchSize == 0 {
		cfg.Ranking.BatchSize = def.Ranking.BatchSize
	}
	if cfg.Ranking.Concurrency == 0 {
		cfg.Ranking.Concurrency = def.Ranking.Concurrency
	}
	if cfg.Refine.InputCap == 0 {
		cfg.Refine.InputCap = def.Refine.InputCap
	}
	if cfg.Refine.Concurrency == 0 {
		cfg.Refine.Concurrency = def.Refine.Concurrency
	}
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = def.Embedder.Type
	}
	if cfg.Embedder.Type == "ollama" && cfg.Embedder.Model == "" {
		cfg.Embedder.Model = def.Embedder.Model
	}
	if cfg.Embedder.TimeoutSecs == 0 {
		cfg.Embedder.TimeoutSecs = def.Embedder.TimeoutSecs
	}
	if cfg.Summarizer.Type == "" {
		cfg.Summarizer.Type = def.Summarizer.Type
	}
	if cfg.Summarizer.TimeoutSecs == 0 {
		cfg.Summarizer.TimeoutSecs = def.Summarizer.TimeoutSecs
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = def.Server.Addr
	}
	if cfg.Server.MaxUploadBytes <= 0 {
		cfg.Server.MaxUploadBytes = def.Server.MaxUploadBytes
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = def.Log.Level
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = def.Log.Format
	}
}

func applyEnv(cfg *AppConfig) {
	cfg.Extract.LineTolerance = envFloat("TRIAGE_LINE_TOLERANCE", cfg.Extract.LineTolerance)
	cfg.Ranking.TopK = envInt("TRIAGE_TOP_K", cfg.Ranking.TopK)
	cfg.Refine.MaxLength = envInt("TRIAGE_MAX_LENGTH", cfg.Refine.MaxLength)

	cfg.Embedder.Type = envOr("TRIAGE_EMBEDDER", cfg.Embedder.Type)
	cfg.Embedder.Model = envOr("TRIAGE_EMBEDDING_MODEL", cfg.Embedder.Model)
	cfg.Summarizer.Type = envOr("TRIAGE_SUMMARIZER", cfg.Summarizer.Type)
	cfg.Summarizer.Model = envOr("TRIAGE_SUMMARY_MODEL", cfg.Summarizer.Model)

	if host := os.Getenv("OLLAMA_HOST"); host != "" {
		if cfg.Embedder.Host == "" {
			cfg.Embedder.Host = host
		}
		if cfg.Summarizer.Host == "" {
			cfg.Summarizer.Host = host
		}
	}

	cfg.Database.URL = envOr("DATABASE_URL", cfg.Database.URL)
	cfg.Server.Addr = envOr("TRIAGE_ADDR", cfg.Server.Addr)
	cfg.Log.Level = envOr("TRIAGE_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = envOr("TRIAGE_LOG_FORMAT", cfg.Log.Format)
}

// Validate reports the first invalid setting as a *models.ConfigError.
func (c *AppConfig) Validate() error {
	tol := c.Extract.LineTolerance
	if tol <= 0 || math.IsNaN(tol) || math.IsInf(tol, 0) {
		return &models.ConfigError{Field: "extract.line_tolerance", Message: "must be a positive finite number"}
	}
	if c.Extract.TitleLength <= 0 {
		return &models.ConfigError{Field: "extract.title_length", Message: "must be positive"}
	}
	if c.Extract.MinTextLength < 0 {
		return &models.ConfigError{Field: "extract.min_text_length", Message: "must not be negative"}
	}
	if c.Ranking.TopK <= 0 {
		return &models.ConfigError{Field: "ranking.top_k", Message: "must be positive"}
	}
	if c.Refine.MaxLength <= 0 {
		return &models.ConfigError{Field: "refine.max_length", Message: "must be positive"}
	}
	switch c.Embedder.Type {
	case "ollama", "tfidf":
	default:
		return &models.ConfigError{Field: "embedder.type", Message: fmt.Sprintf("unknown embedder %q", c.Embedder.Type)}
	}
	switch c.Summarizer.Type {
	case "frequency":
	case "ollama":
		if c.Summarizer.Model == "" {
			return &models.ConfigError{Field: "summarizer.model", Message: "is required for the ollama summarizer"}
		}
	default:
		return &models.ConfigError{Field: "summarizer.type", Message: fmt.Sprintf("unknown summarizer %q", c.Summarizer.Type)}
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		return &models.ConfigError{Field: "log.format", Message: fmt.Sprintf("unknown format %q", c.Log.Format)}
	}
	return nil
}

// EmbedderTimeout is the per-request embedding timeout.
func (c *AppConfig) EmbedderTimeout() time.Duration {
	return time.Duration(c.Embedder.TimeoutSecs) * time.Second
}

// SummarizerTimeout is the per-request generation timeout.
func (c *AppConfig) SummarizerTimeout() time.Duration {
	return time.Duration(c.Summarizer.TimeoutSecs) * time.Second
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
