package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"doc-triage/internal/config"
	"doc-triage/internal/database"
	"doc-triage/internal/llm"
	"doc-triage/internal/pipeline"
)

const statsWindow = time.Hour

// app carries state resolved by the root command for its subcommands
type app struct {
	configPath string
	logLevel   string
	logFormat  string

	cfg   *config.AppConfig
	log   *slog.Logger
	stats *llm.Stats
}

func main() {
	// A missing .env file is not an error
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "triage",
		Short:         "Rank document sections by relevance to a persona and task",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init()
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "config.yaml", "Path to the YAML configuration file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "Log format: json or text")

	root.AddCommand(
		newRunCmd(a),
		newServeCmd(a),
		newMCPCmd(a),
		newHistoryCmd(a),
	)
	return root
}

func (a *app) init() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Log.Format = a.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	a.cfg = cfg
	a.log = config.NewLogger(os.Stderr, cfg.Log)
	a.stats = llm.NewStats(statsWindow)
	return nil
}

// openStore connects to the run history database when one is configured.
// It returns nil when no database URL is set.
func (a *app) openStore(ctx context.Context) (*database.DB, error) {
	if a.cfg.Database.URL == "" {
		return nil, nil
	}

	db, err := database.NewDB(ctx, a.cfg.Database.URL)
	if err != nil {
		return nil, err
	}
	if err := db.Initialize(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	a.log.Info("database initialized")
	return db, nil
}

// factory builds pipelines that save runs to db when it is non-nil
func (a *app) factory(db *database.DB) pipeline.Factory {
	var store pipeline.RunStore
	if db != nil {
		store = db
	}
	return pipeline.NewFactory(a.cfg, a.stats, store, a.log)
}
