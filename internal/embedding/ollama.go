package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/skillbase-io/skillbase/internal/apperrors"
)

const (
	// requestTimeout bounds a single embedding call.
	requestTimeout = 30 * time.Second

	// batchPacing spaces sequential calls so a local model server is not
	// saturated. The backend has no native batch API.
	batchPacing = 100 * time.Millisecond
)

// OllamaEmbedder calls an Ollama-compatible /api/embeddings endpoint.
type OllamaEmbedder struct {
	baseURL    string
	model      string
	httpClient *http.Client
	pacing     time.Duration
}

var _ Embedder = (*OllamaEmbedder)(nil)

func NewOllamaEmbedder(baseURL, model string) *OllamaEmbedder {
	return &OllamaEmbedder{
		baseURL: baseURL,
		model:   model,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
		pacing: batchPacing,
	}
}

type ollamaEmbedReq struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResp struct {
	Embedding []float32 `json:"embedding"`
}

func (e *OllamaEmbedder) Embed(ctx context.Context, text string) (Embedding, error) {
	body, err := json.Marshal(ollamaEmbedReq{Model: e.model, Prompt: text})
	if err != nil {
		return Embedding{}, fmt.Errorf("marshal embeddings request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return Embedding{}, apperrors.ExternalService("ollama", fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return Embedding{}, apperrors.ExternalService("ollama", fmt.Errorf("embeddings request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Embedding{}, apperrors.ExternalService("ollama",
			fmt.Errorf("embeddings request returned %d: %s", resp.StatusCode, bytes.TrimSpace(detail)))
	}

	var out ollamaEmbedResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Embedding{}, apperrors.ExternalService("ollama", fmt.Errorf("decode embeddings response: %w", err))
	}

	if len(out.Embedding) == 0 {
		return Embedding{}, apperrors.ExternalService("ollama", fmt.Errorf("response has no embedding vector"))
	}

	slog.Debug("generated embedding", "model", e.model, "text_len", len(text), "dim", len(out.Embedding))

	return Embedding{Vector: out.Embedding, Model: e.model}, nil
}

func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([]Embedding, error) {
	results := make([]Embedding, 0, len(texts))

	for i, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed text %d of %d: %w", i+1, len(texts), err)
		}
		results = append(results, emb)

		if i < len(texts)-1 && e.pacing > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(e.pacing):
			}
		}
	}

	slog.Info("generated embeddings batch", "count", len(texts), "model", e.model)
	return results, nil
}
