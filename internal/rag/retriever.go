// Package rag retrieves the chunks most relevant to a query from a skill's
// knowledge base.
package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/skillbase-io/skillbase/internal/apperrors"
	"github.com/skillbase-io/skillbase/internal/embedding"
	"github.com/skillbase-io/skillbase/internal/vectorstore"
)

type Retriever struct {
	embedder  embedding.Embedder
	store     vectorstore.Store
	maxChunks int
	threshold float64
	metric    vectorstore.Metric
}

type Options struct {
	MaxContextChunks int
	ScoreThreshold   float64
	Metric           vectorstore.Metric
}

func NewRetriever(embedder embedding.Embedder, store vectorstore.Store, opts Options) *Retriever {
	maxChunks := opts.MaxContextChunks
	if maxChunks <= 0 {
		maxChunks = 5
	}
	metric := opts.Metric
	if metric == "" {
		metric = vectorstore.MetricCosine
	}
	return &Retriever{
		embedder:  embedder,
		store:     store,
		maxChunks: maxChunks,
		threshold: opts.ScoreThreshold,
		metric:    metric,
	}
}

// Retrieve embeds the query and returns up to limit chunks whose score meets
// the threshold. A skill with no ingested knowledge yields an empty result,
// not an error.
func (r *Retriever) Retrieve(ctx context.Context, skillID, query string, limit int) ([]vectorstore.SearchResult, error) {
	if query == "" {
		return nil, apperrors.Validation("query is required")
	}
	if limit <= 0 || limit > r.maxChunks {
		limit = r.maxChunks
	}

	emb, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results, err := r.store.Search(ctx, skillID, emb.Vector, limit, r.metric)
	if errors.Is(err, vectorstore.ErrTableNotFound) {
		slog.Debug("skill has no knowledge base", "skill_id", skillID)
		return []vectorstore.SearchResult{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("search skill %s: %w", skillID, err)
	}

	filtered := make([]vectorstore.SearchResult, 0, len(results))
	for _, res := range results {
		if res.Score >= r.threshold {
			filtered = append(filtered, res)
		}
	}
	return filtered, nil
}
