package vectorstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/skillbase-io/skillbase/internal/apperrors"
)

// Postgres error code for "relation does not exist".
const undefinedTableCode = "42P01"

type PgVectorStore struct {
	db *pgxpool.Pool
}

var _ Store = (*PgVectorStore)(nil)

func NewPgVectorStore(db *pgxpool.Pool) *PgVectorStore {
	return &PgVectorStore{db: db}
}

func (s *PgVectorStore) Append(ctx context.Context, skillID string, records []ChunkRecord) error {
	if len(records) == 0 {
		return nil
	}

	table := TableName(skillID)
	if err := s.insert(ctx, table, records); err != nil {
		if isUndefinedTable(err) {
			return fmt.Errorf("append to %s: %w", table, ErrTableNotFound)
		}
		return err
	}

	slog.Debug("appended chunk records", "table", table, "rows", len(records))
	return nil
}

func (s *PgVectorStore) Create(ctx context.Context, skillID string, records []ChunkRecord) error {
	if len(records) == 0 {
		return apperrors.Validation("cannot create chunk table from an empty batch")
	}

	table := TableName(skillID)
	dim := len(records[0].Embedding)

	_, err := s.db.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id          TEXT PRIMARY KEY,
			skill_id    TEXT NOT NULL,
			document_id TEXT NOT NULL,
			content     TEXT NOT NULL,
			embedding   vector(%d) NOT NULL,
			token_count INT NOT NULL DEFAULT 0,
			metadata    JSONB NOT NULL DEFAULT '{}',
			created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, table, dim))
	if err != nil {
		return fmt.Errorf("create table %s: %w", table, err)
	}

	_, err = s.db.Exec(ctx, fmt.Sprintf(
		`CREATE INDEX IF NOT EXISTS %s_embedding_idx ON %s USING hnsw (embedding vector_cosine_ops)`,
		table, table))
	if err != nil {
		return fmt.Errorf("create vector index on %s: %w", table, err)
	}

	if err := s.insert(ctx, table, records); err != nil {
		return err
	}

	slog.Info("created chunk table", "table", table, "dim", dim, "rows", len(records))
	return nil
}

func (s *PgVectorStore) insert(ctx context.Context, table string, records []ChunkRecord) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, skill_id, document_id, content, embedding, token_count, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`, table)

	for _, rec := range records {
		metadata, err := json.Marshal(rec.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata for %s: %w", rec.ID, err)
		}

		_, err = tx.Exec(ctx, stmt,
			rec.ID, rec.SkillID, rec.DocumentID, rec.Content,
			pgvector.NewVector(rec.Embedding), rec.TokenCount, metadata, rec.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert chunk %s: %w", rec.ID, err)
		}
	}

	return tx.Commit(ctx)
}

func (s *PgVectorStore) Search(ctx context.Context, skillID string, query []float32, limit int, metric Metric) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 10
	}

	table := TableName(skillID)
	op := distanceOperator(metric)

	rows, err := s.db.Query(ctx, fmt.Sprintf(`
		SELECT id, skill_id, document_id, content, metadata, created_at,
		       embedding %s $1 AS distance
		FROM %s
		ORDER BY embedding %s $1
		LIMIT $2`, op, table, op),
		pgvector.NewVector(query), limit,
	)
	if err != nil {
		if isUndefinedTable(err) {
			return nil, fmt.Errorf("search %s: %w", table, ErrTableNotFound)
		}
		return nil, fmt.Errorf("search %s: %w", table, err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.ID, &r.SkillID, &r.DocumentID, &r.Content, &r.Metadata, &r.CreatedAt, &r.Distance); err != nil {
			return nil, fmt.Errorf("scan search result: %w", err)
		}
		r.Score = ScoreFromDistance(metric, r.Distance)
		results = append(results, r)
	}
	return results, rows.Err()
}

func (s *PgVectorStore) Drop(ctx context.Context, skillID string) error {
	table := TableName(skillID)
	if _, err := s.db.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", table)); err != nil {
		return fmt.Errorf("drop table %s: %w", table, err)
	}
	slog.Info("dropped chunk table", "table", table)
	return nil
}

func distanceOperator(metric Metric) string {
	switch metric {
	case MetricL2:
		return "<->"
	default:
		return "<=>"
	}
}

func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == undefinedTableCode
}
