package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"doc-triage/internal/models"
	"doc-triage/internal/pipeline"
	"doc-triage/internal/report"
	"doc-triage/internal/source"
)

const (
	// DocumentErrorsHeader carries the number of uploaded files that could not be read
	DocumentErrorsHeader = "X-Triage-Document-Errors"
	RunIDHeader          = "X-Triage-Run-ID"
)

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	// Extra 1MB for form overhead.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	persona := strings.TrimSpace(r.FormValue("persona"))
	task := strings.TrimSpace(r.FormValue("task"))
	if persona == "" || task == "" {
		jsonError(w, "persona and task are required", http.StatusBadRequest)
		return
	}

	var opts pipeline.Options
	if v := r.FormValue("top_k"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			jsonError(w, "top_k must be a positive integer", http.StatusBadRequest)
			return
		}
		opts.TopK = n
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		jsonError(w, "at least one file is required", http.StatusBadRequest)
		return
	}

	opener := make(source.BytesOpener, len(files))
	names := make([]string, 0, len(files))
	for _, fh := range files {
		filename := sanitizeFilename(fh.Filename)
		if !source.IsSupportedExtension(filename) {
			jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
			return
		}
		if _, dup := opener[filename]; dup {
			jsonError(w, fmt.Sprintf("duplicate file: %s", filename), http.StatusBadRequest)
			return
		}

		f, err := fh.Open()
		if err != nil {
			jsonError(w, "failed to open file", http.StatusInternalServerError)
			return
		}
		data, err := io.ReadAll(io.LimitReader(f, s.cfg.MaxUploadBytes+1))
		f.Close()
		if err != nil {
			jsonError(w, "failed to read file", http.StatusInternalServerError)
			return
		}
		if int64(len(data)) > s.cfg.MaxUploadBytes {
			jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
			return
		}

		opener[filename] = data
		names = append(names, filename)
	}

	p, err := s.factory(opener, opts)
	if err != nil {
		s.writeRunError(w, err)
		return
	}

	res, err := p.Run(r.Context(), pipeline.Request{
		Documents: names,
		Paths:     names,
		Persona:   persona,
		Task:      task,
	})
	if err != nil {
		s.writeRunError(w, err)
		return
	}

	for _, f := range res.Failures {
		s.log.Warn("uploaded document unreadable", "document", f.Document, "error", f.Err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(DocumentErrorsHeader, strconv.Itoa(len(res.Failures)))
	if res.RunID != "" {
		w.Header().Set(RunIDHeader, res.RunID)
	}
	if err := report.Write(w, res.Report); err != nil {
		s.log.Error("failed to write report", "error", err)
	}
}

func (s *Server) writeRunError(w http.ResponseWriter, err error) {
	var cfgErr *models.ConfigError
	var embErr *models.EmbeddingError
	var readErr *models.DocumentReadError

	switch {
	case errors.As(err, &cfgErr):
		jsonError(w, err.Error(), http.StatusBadRequest)
	case errors.As(err, &embErr):
		s.log.Error("embedding backend failed", "stage", embErr.Stage, "error", embErr.Err)
		jsonError(w, err.Error(), http.StatusBadGateway)
	case errors.As(err, &readErr):
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		s.log.Error("analysis failed", "error", err)
		jsonError(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) handleLLMStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		jsonError(w, "llm stats unavailable", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"stats": s.stats.Snapshot(),
	})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		jsonError(w, "run history unavailable", http.StatusServiceUnavailable)
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	runs, err := s.history.RecentRuns(r.Context(), limit)
	if err != nil {
		s.log.Error("failed to list runs", "error", err)
		jsonError(w, "failed to list runs", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"runs": runs})
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." || name == "/" {
		name = "unnamed"
	}
	return name
}
