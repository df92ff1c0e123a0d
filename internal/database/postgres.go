package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"doc-triage/internal/models"
)

// Pool is the subset of pgxpool.Pool the store uses
type Pool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// DB stores completed triage runs
type DB struct {
	Pool Pool
	// Generates run IDs; defaults to random UUIDs
	NewID func() string
}

// RunSummary is one row of the run history
type RunSummary struct {
	ID          string    `json:"id"`
	Persona     string    `json:"persona"`
	JobToBeDone string    `json:"job_to_be_done"`
	Documents   []string  `json:"input_documents"`
	ProcessedAt time.Time `json:"processed_at"`
	Sections    int       `json:"sections"`
}

// NewDB creates a new database connection
func NewDB(ctx context.Context, connStr string) (*DB, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return New(pool), nil
}

// New wraps an existing pool
func New(pool Pool) *DB {
	return &DB{Pool: pool, NewID: uuid.NewString}
}

// Initialize sets up the database tables and indices
func (db *DB) Initialize(ctx context.Context) error {
	_, err := db.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS triage_runs (
			id UUID PRIMARY KEY,
			persona TEXT NOT NULL,
			job_to_be_done TEXT NOT NULL,
			input_documents TEXT[] NOT NULL,
			processed_at TIMESTAMPTZ NOT NULL,
			report JSONB NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create triage_runs table: %w", err)
	}

	_, err = db.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS triage_sections (
			run_id UUID NOT NULL REFERENCES triage_runs (id) ON DELETE CASCADE,
			importance_rank INTEGER NOT NULL,
			document TEXT NOT NULL,
			page_number INTEGER NOT NULL,
			section_title TEXT NOT NULL,
			score DOUBLE PRECISION NOT NULL,
			refined_text TEXT NOT NULL,
			PRIMARY KEY (run_id, importance_rank)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create triage_sections table: %w", err)
	}

	_, err = db.Pool.Exec(ctx, `
		CREATE INDEX IF NOT EXISTS triage_runs_processed_at_idx ON triage_runs (processed_at DESC);
		CREATE INDEX IF NOT EXISTS triage_runs_documents_idx ON triage_runs USING GIN (input_documents);
	`)
	if err != nil {
		return fmt.Errorf("failed to create additional indices: %w", err)
	}

	return nil
}

// SaveRun stores a report and its ranked sections in one transaction and
// returns the new run ID. top and the report's subsection analysis must align.
func (db *DB) SaveRun(ctx context.Context, r *models.Report, top []models.RankedResult) (string, error) {
	if len(top) != len(r.SubsectionAnalysis) {
		return "", fmt.Errorf("run has %d ranked sections but %d refined", len(top), len(r.SubsectionAnalysis))
	}

	processedAt, err := time.Parse(time.RFC3339, r.Metadata.ProcessingTimestamp)
	if err != nil {
		return "", fmt.Errorf("invalid processing timestamp: %w", err)
	}
	body, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("failed to encode report: %w", err)
	}

	id := db.NewID()
	err = pgx.BeginFunc(ctx, db.Pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO triage_runs (id, persona, job_to_be_done, input_documents, processed_at, report)
			VALUES ($1, $2, $3, $4, $5, $6)
		`,
			id,
			r.Metadata.Persona,
			r.Metadata.JobToBeDone,
			r.Metadata.InputDocuments,
			processedAt,
			string(body))
		if err != nil {
			return fmt.Errorf("failed to insert run: %w", err)
		}

		for i, item := range top {
			_, err := tx.Exec(ctx, `
				INSERT INTO triage_sections (
					run_id, importance_rank, document, page_number,
					section_title, score, refined_text
				)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
			`,
				id,
				item.Rank,
				item.Section.Document,
				item.Section.PageNumber,
				item.Section.Title,
				item.Score,
				r.SubsectionAnalysis[i].RefinedText)
			if err != nil {
				return fmt.Errorf("failed to insert section %d: %w", item.Rank, err)
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// RecentRuns lists the latest runs, newest first
func (db *DB) RecentRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT r.id::text, r.persona, r.job_to_be_done, r.input_documents, r.processed_at,
		       (SELECT count(*) FROM triage_sections s WHERE s.run_id = r.id)
		FROM triage_runs r
		ORDER BY r.processed_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent runs: %w", err)
	}
	return processRows(rows)
}

// RunsForDocument lists runs that included the named document
func (db *DB) RunsForDocument(ctx context.Context, document string, limit int) ([]RunSummary, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT r.id::text, r.persona, r.job_to_be_done, r.input_documents, r.processed_at,
		       (SELECT count(*) FROM triage_sections s WHERE s.run_id = r.id)
		FROM triage_runs r
		WHERE $1 = ANY(r.input_documents)
		ORDER BY r.processed_at DESC
		LIMIT $2
	`, document, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs for document: %w", err)
	}
	return processRows(rows)
}

// GetRun loads the stored report of a run
func (db *DB) GetRun(ctx context.Context, id string) (*models.Report, error) {
	var body []byte
	err := db.Pool.QueryRow(ctx, `SELECT report FROM triage_runs WHERE id = $1`, id).Scan(&body)
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", id, err)
	}

	var r models.Report
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("failed to decode run %s: %w", id, err)
	}
	return &r, nil
}

func processRows(rows pgx.Rows) ([]RunSummary, error) {
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var run RunSummary
		if err := rows.Scan(
			&run.ID,
			&run.Persona,
			&run.JobToBeDone,
			&run.Documents,
			&run.ProcessedAt,
			&run.Sections); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return runs, nil
}

// Close closes the database connection
func (db *DB) Close() {
	db.Pool.Close()
}
