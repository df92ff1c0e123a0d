package models

import "fmt"

// ConfigError reports an invalid configuration value. It is raised before any processing starts.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Message)
}

// DocumentReadError reports a document that could not be decoded.
// Page is 0 when the document could not be opened at all.
type DocumentReadError struct {
	Document string
	Page     int
	Err      error
}

func (e *DocumentReadError) Error() string {
	if e.Page > 0 {
		return fmt.Sprintf("failed to read document %s (page %d): %v", e.Document, e.Page, e.Err)
	}
	return fmt.Sprintf("failed to read document %s: %v", e.Document, e.Err)
}

func (e *DocumentReadError) Unwrap() error { return e.Err }

// EmbeddingStage identifies which embedding call failed
type EmbeddingStage string

const (
	StageQuery     EmbeddingStage = "query"
	StageCandidate EmbeddingStage = "candidate"
	StagePrepare   EmbeddingStage = "prepare"
)

// EmbeddingError aborts a ranking. Index is the candidate index for StageCandidate, -1 otherwise.
type EmbeddingError struct {
	Stage EmbeddingStage
	Index int
	Err   error
}

func (e *EmbeddingError) Error() string {
	if e.Stage == StageCandidate {
		return fmt.Sprintf("embedding failed for candidate %d: %v", e.Index, e.Err)
	}
	return fmt.Sprintf("embedding failed at %s stage: %v", e.Stage, e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

// SummarizationError records a summarizer failure that was replaced by a local truncation
type SummarizationError struct {
	Document   string
	PageNumber int
	Err        error
}

func (e *SummarizationError) Error() string {
	return fmt.Sprintf("summarization failed for %s page %d: %v", e.Document, e.PageNumber, e.Err)
}

func (e *SummarizationError) Unwrap() error { return e.Err }
