package embedding

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"
	"github.com/ollama/ollama/envconfig"
)

// DefaultOllamaModel is a small sentence-embedding model with 384 dimensions
const DefaultOllamaModel = "all-minilm"

// OllamaEmbedder generates embeddings using Ollama API
type OllamaEmbedder struct {
	Client     *api.Client
	Model      string
	MaxRetries int
	Timeout    time.Duration
	// Number of texts sent per /api/embed request
	BatchSize int
}

// NewOllamaEmbedder creates a new Ollama embedder. An empty host falls back to OLLAMA_HOST.
func NewOllamaEmbedder(host string, model string) (*OllamaEmbedder, error) {
	hostURL := envconfig.Host()
	if host != "" {
		u, err := url.Parse(host)
		if err != nil {
			return nil, fmt.Errorf("failed to parse ollama host: %w", err)
		}
		hostURL = u
	}
	if model == "" {
		model = DefaultOllamaModel
	}
	client := api.NewClient(hostURL, http.DefaultClient)

	return &OllamaEmbedder{
		Client:     client,
		Model:      model,
		MaxRetries: 3,
		Timeout:    time.Second * 30,
		BatchSize:  32,
	}, nil
}

// Embed generates an embedding for a single text
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	var embedding []float64
	err := e.retry(ctx, func(ctx context.Context) error {
		resp, err := e.Client.Embeddings(ctx, &api.EmbeddingRequest{
			Model:   e.Model,
			Prompt:  text,
			Options: map[string]any{},
		})
		if err != nil {
			return err
		}
		if len(resp.Embedding) == 0 {
			return fmt.Errorf("empty embedding returned by model %s", e.Model)
		}
		embedding = resp.Embedding
		return nil
	})
	if err != nil {
		return nil, err
	}
	return embedding, nil
}

// EmbedBatch embeds texts in chunks of BatchSize, preserving input order
func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	size := e.BatchSize
	if size <= 0 {
		size = len(texts)
	}

	out := make([][]float64, 0, len(texts))
	for start := 0; start < len(texts); start += size {
		end := min(start+size, len(texts))
		batch := texts[start:end]

		var vectors [][]float64
		err := e.retry(ctx, func(ctx context.Context) error {
			resp, err := e.Client.Embed(ctx, &api.EmbedRequest{
				Model: e.Model,
				Input: batch,
			})
			if err != nil {
				return err
			}
			if len(resp.Embeddings) != len(batch) {
				return fmt.Errorf("expected %d embeddings, got %d", len(batch), len(resp.Embeddings))
			}
			vectors = make([][]float64, len(resp.Embeddings))
			for i, v := range resp.Embeddings {
				vectors[i] = toFloat64(v)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to embed batch starting at %d: %w", start, err)
		}
		out = append(out, vectors...)
	}
	return out, nil
}

// retry runs fn with a per-attempt timeout and exponential backoff between attempts
func (e *OllamaEmbedder) retry(ctx context.Context, fn func(context.Context) error) error {
	var err error
	for attempt := 0; attempt <= e.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff(attempt - 1)):
			}
		}

		err = e.attempt(ctx, fn)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return fmt.Errorf("failed to create embedding after %d retries: %w", e.MaxRetries, err)
}

func (e *OllamaEmbedder) attempt(ctx context.Context, fn func(context.Context) error) error {
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}
	return fn(ctx)
}

// backoff returns a duration for attempt n (0-indexed) with jitter.
func backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * 250 * time.Millisecond
	if base > 8*time.Second {
		base = 8 * time.Second
	}
	return base + time.Duration(rand.Int64N(int64(base)/2+1))
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, f := range v {
		out[i] = float64(f)
	}
	return out
}
