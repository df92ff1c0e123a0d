package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"github.com/ollama/ollama/envconfig"
)

// OllamaSummarizer condenses text with an Ollama generation model
type OllamaSummarizer struct {
	Client  *api.Client
	Model   string
	Timeout time.Duration
	Stats   *Stats
}

// NewOllamaSummarizer creates a new Ollama summarizer. An empty host falls back to OLLAMA_HOST.
func NewOllamaSummarizer(host string, model string, stats *Stats) (*OllamaSummarizer, error) {
	hostURL := envconfig.Host()
	if host != "" {
		u, err := url.Parse(host)
		if err != nil {
			return nil, fmt.Errorf("failed to parse ollama host: %w", err)
		}
		hostURL = u
	}
	if model == "" {
		return nil, fmt.Errorf("summarizer model is required")
	}
	client := api.NewClient(hostURL, http.DefaultClient)

	return &OllamaSummarizer{
		Client:  client,
		Model:   model,
		Timeout: 120 * time.Second,
		Stats:   stats,
	}, nil
}

// GeneratePrompt builds the condensation instruction for one passage
func (o *OllamaSummarizer) GeneratePrompt(text string, maxLength, minLength int) string {
	var promptBuilder strings.Builder

	promptBuilder.WriteString("You condense passages for a reader who needs the key facts at a glance. ")
	promptBuilder.WriteString("Rewrite the passage below as a single plain-text summary. ")
	promptBuilder.WriteString(fmt.Sprintf("Use at least %d and at most %d characters. ", minLength, maxLength))
	promptBuilder.WriteString("Keep names, quantities and instructions that appear in the passage. ")
	promptBuilder.WriteString("Do not add facts, headings, lists or commentary.\n\n")

	promptBuilder.WriteString("Passage:\n")
	promptBuilder.WriteString(text)
	promptBuilder.WriteString("\n\nSummary: ")

	return promptBuilder.String()
}

// Summarize returns the model output for text. It is not clipped to maxLength.
func (o *OllamaSummarizer) Summarize(ctx context.Context, text string, maxLength, minLength int) (string, error) {
	req := api.GenerateRequest{
		Model:  o.Model,
		Prompt: o.GeneratePrompt(text, maxLength, minLength),
		Options: map[string]interface{}{
			"temperature": 0,
			// maxLength characters never take more than maxLength tokens
			"num_predict": maxLength,
		},
	}

	if o.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.Timeout)
		defer cancel()
	}

	var responseBuilder strings.Builder
	start := time.Now()

	err := o.Client.Generate(ctx, &req, func(resp api.GenerateResponse) error {
		_, err := responseBuilder.WriteString(resp.Response)
		return err
	})
	o.Stats.Record(time.Since(start).Milliseconds(), err)
	if err != nil {
		return "", fmt.Errorf("failed to generate summary: %w", err)
	}

	return strings.TrimSpace(responseBuilder.String()), nil
}
