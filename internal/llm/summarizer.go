// Package llm provides summarization backends.
package llm

import "context"

// Summarizer condenses text to roughly maxLength characters.
// minLength is a hint. Implementations may fail and callers must handle it.
type Summarizer interface {
	Summarize(ctx context.Context, text string, maxLength, minLength int) (string, error)
}
