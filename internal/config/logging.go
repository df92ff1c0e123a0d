package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"doc-triage/internal/models"
)

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, &models.ConfigError{Field: "log.level", Message: fmt.Sprintf("unknown level %q", level)}
	}
}

// NewLogger builds the application logger. Unknown levels fall back to info.
func NewLogger(w io.Writer, cfg LogConfig) *slog.Logger {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if strings.ToLower(cfg.Format) == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
