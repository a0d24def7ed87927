// Package embedding turns chunk text into fixed-length vectors by calling an
// external model server. Results are never cached: identical text submitted
// twice is embedded twice.
package embedding

import (
	"context"
	"fmt"

	"github.com/skillbase-io/skillbase/internal/config"
)

// Embedding pairs a vector with the model that produced it.
type Embedding struct {
	Vector []float32 `json:"vector"`
	Model  string    `json:"model"`
}

type Embedder interface {
	// Embed generates the embedding for a single text.
	Embed(ctx context.Context, text string) (Embedding, error)

	// EmbedBatch embeds texts one by one, preserving input order. The first
	// failure aborts the whole batch; partial results are discarded by the
	// caller.
	EmbedBatch(ctx context.Context, texts []string) ([]Embedding, error)
}

// NewEmbedder builds the provider selected by configuration.
func NewEmbedder(cfg config.EmbeddingConfig) (Embedder, error) {
	switch cfg.Provider {
	case "", "ollama":
		return NewOllamaEmbedder(cfg.OllamaURL, cfg.Model), nil
	case "openai":
		return NewOpenAIEmbedder(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Provider)
	}
}
