package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"doc-triage/internal/config"
	"doc-triage/internal/database"
	"doc-triage/internal/llm"
	"doc-triage/internal/pipeline"
)

// History lists stored runs
type History interface {
	RecentRuns(ctx context.Context, limit int) ([]database.RunSummary, error)
}

// Server is the HTTP API server for document triage.
type Server struct {
	router  chi.Router
	factory pipeline.Factory
	stats   *llm.Stats
	history History
	log     *slog.Logger
	cfg     config.ServerConfig
}

// NewServer creates and configures the HTTP server. history may be nil when
// no database is configured.
func NewServer(factory pipeline.Factory, stats *llm.Stats, history History, log *slog.Logger, cfg config.ServerConfig) *Server {
	s := &Server{
		factory: factory,
		stats:   stats,
		history: history,
		log:     log,
		cfg:     cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	r.Get("/health", s.handleHealth)

	r.Post("/api/analyze", s.handleAnalyze)
	r.Get("/api/stats/llm", s.handleLLMStats)
	r.Get("/api/runs", s.handleListRuns)

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
