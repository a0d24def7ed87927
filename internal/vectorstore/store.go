// Package vectorstore persists chunk records into one pgvector table per
// skill and serves nearest-neighbor search over them.
package vectorstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrTableNotFound reports that a skill's chunk table has not been created
// yet. The worker reacts by falling back from Append to Create; the
// retriever treats it as an empty knowledge base.
var ErrTableNotFound = errors.New("chunk table does not exist")

// Metric selects how stored vectors are ranked against a query vector.
type Metric string

const (
	// MetricCosine ranks by cosine distance; scores are 1 - distance.
	MetricCosine Metric = "cosine"
	// MetricL2 ranks by euclidean distance; scores are 1 / (1 + distance).
	MetricL2 Metric = "l2"
)

// ChunkRecord is one persisted chunk of one document. Records are immutable
// after insertion; they are only searched or dropped with their table.
type ChunkRecord struct {
	ID         string         `json:"id"`
	SkillID    string         `json:"skill_id"`
	DocumentID string         `json:"document_id"`
	Content    string         `json:"content"`
	Embedding  []float32      `json:"-"`
	TokenCount int            `json:"token_count"`
	Metadata   ChunkMetadata  `json:"metadata"`
	CreatedAt  time.Time      `json:"created_at"`
}

// ChunkMetadata travels with each record as JSON.
type ChunkMetadata struct {
	Source      string `json:"source"`
	ChunkIndex  int    `json:"chunk_index"`
	TotalChunks int    `json:"total_chunks"`
	StartChar   int    `json:"start_char"`
	EndChar     int    `json:"end_char"`
}

type SearchResult struct {
	ID         string          `json:"id"`
	SkillID    string          `json:"skill_id"`
	DocumentID string          `json:"document_id"`
	Content    string          `json:"content"`
	Metadata   json.RawMessage `json:"metadata"`
	Distance   float64         `json:"distance"`
	Score      float64         `json:"score"`
	CreatedAt  time.Time       `json:"created_at"`
}

type Store interface {
	// Append inserts records into the skill's existing table. Returns
	// ErrTableNotFound when the table has never been created; the caller
	// falls back to Create with the same batch.
	Append(ctx context.Context, skillID string, records []ChunkRecord) error

	// Create creates the skill's table (sized to the batch's vector
	// dimension) and inserts the batch.
	Create(ctx context.Context, skillID string, records []ChunkRecord) error

	// Search returns the top-limit records ranked by the metric. Threshold
	// filtering is the caller's responsibility.
	Search(ctx context.Context, skillID string, query []float32, limit int, metric Metric) ([]SearchResult, error)

	// Drop deletes the skill's table; a missing table is a no-op.
	Drop(ctx context.Context, skillID string) error
}

// TableName derives the per-skill table name. Non-alphanumeric characters in
// the skill id are replaced so the id is safe as a SQL identifier.
func TableName(skillID string) string {
	sanitized := make([]byte, 0, len(skillID))
	for i := 0; i < len(skillID); i++ {
		c := skillID[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			sanitized = append(sanitized, c)
		default:
			sanitized = append(sanitized, '_')
		}
	}
	return "skill_chunks_" + string(sanitized)
}

// ScoreFromDistance applies the canonical distance-to-similarity transform
// for the metric. One formula per metric, applied uniformly.
func ScoreFromDistance(metric Metric, distance float64) float64 {
	switch metric {
	case MetricL2:
		return 1 / (1 + distance)
	default:
		return 1 - distance
	}
}
