package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// testStore connects to TEST_DATABASE_URL and hands back a store plus a
// unique skill id whose table is dropped afterwards. Skipped when no test
// database is configured; the database needs the pgvector extension.
func testStore(t *testing.T) (*PgVectorStore, string) {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	store := NewPgVectorStore(pool)
	skillID := fmt.Sprintf("vstest_%d", time.Now().UnixNano())
	t.Cleanup(func() {
		store.Drop(context.Background(), skillID)
	})
	return store, skillID
}

func testRecord(skillID, docID string, index int, embedding []float32) ChunkRecord {
	return ChunkRecord{
		ID:         fmt.Sprintf("%s_chunk_%d", docID, index),
		SkillID:    skillID,
		DocumentID: docID,
		Content:    fmt.Sprintf("chunk %d of %s", index, docID),
		Embedding:  embedding,
		TokenCount: 4,
		Metadata:   ChunkMetadata{Source: docID + ".txt", ChunkIndex: index, TotalChunks: 2},
		CreatedAt:  time.Now().UTC(),
	}
}

func TestAppend_MissingTable(t *testing.T) {
	store, skillID := testStore(t)

	err := store.Append(context.Background(), skillID, []ChunkRecord{
		testRecord(skillID, "doc1", 0, []float32{1, 0, 0}),
	})
	if !errors.Is(err, ErrTableNotFound) {
		t.Errorf("append to fresh skill: error = %v, want ErrTableNotFound", err)
	}
}

func TestAppendOrCreate_Idempotent(t *testing.T) {
	store, skillID := testStore(t)
	ctx := context.Background()

	first := []ChunkRecord{
		testRecord(skillID, "doc1", 0, []float32{1, 0, 0}),
		testRecord(skillID, "doc1", 1, []float32{0, 1, 0}),
	}
	second := []ChunkRecord{
		testRecord(skillID, "doc2", 0, []float32{0, 0, 1}),
	}

	// First batch: append fails, create takes over. Second batch appends.
	if err := store.Append(ctx, skillID, first); !errors.Is(err, ErrTableNotFound) {
		t.Fatalf("first append: error = %v, want ErrTableNotFound", err)
	}
	if err := store.Create(ctx, skillID, first); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Append(ctx, skillID, second); err != nil {
		t.Fatalf("second append: %v", err)
	}

	results, err := store.Search(ctx, skillID, []float32{1, 0, 0}, 10, MetricCosine)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 3 {
		t.Errorf("table holds %d records, want 3 across both batches", len(results))
	}
}

func TestSearch_RanksAndScores(t *testing.T) {
	store, skillID := testStore(t)
	ctx := context.Background()

	records := []ChunkRecord{
		testRecord(skillID, "doc1", 0, []float32{1, 0, 0}),
		testRecord(skillID, "doc1", 1, []float32{0.9, 0.1, 0}),
		testRecord(skillID, "doc2", 0, []float32{0, 1, 0}),
	}
	if err := store.Create(ctx, skillID, records); err != nil {
		t.Fatalf("create: %v", err)
	}

	results, err := store.Search(ctx, skillID, []float32{1, 0, 0}, 2, MetricCosine)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].ID != "doc1_chunk_0" {
		t.Errorf("best match = %s, want exact-direction vector doc1_chunk_0", results[0].ID)
	}
	for i, r := range results {
		want := ScoreFromDistance(MetricCosine, r.Distance)
		if r.Score != want {
			t.Errorf("result %d score = %v, want %v from distance %v", i, r.Score, want, r.Distance)
		}
		if i > 0 && r.Score > results[i-1].Score {
			t.Errorf("results not ranked by score at %d", i)
		}
	}
}

func TestSearch_SpansDocuments(t *testing.T) {
	store, skillID := testStore(t)
	ctx := context.Background()

	if err := store.Create(ctx, skillID, []ChunkRecord{
		testRecord(skillID, "doc1", 0, []float32{1, 0}),
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Append(ctx, skillID, []ChunkRecord{
		testRecord(skillID, "doc2", 0, []float32{0.8, 0.2}),
	}); err != nil {
		t.Fatalf("append: %v", err)
	}

	results, err := store.Search(ctx, skillID, []float32{1, 0}, 10, MetricCosine)
	if err != nil {
		t.Fatalf("search: %v", err)
	}

	docs := map[string]bool{}
	for _, r := range results {
		docs[r.DocumentID] = true
	}
	if !docs["doc1"] || !docs["doc2"] {
		t.Errorf("search returned docs %v, want both doc1 and doc2", docs)
	}
}

func TestSearch_MissingTable(t *testing.T) {
	store, skillID := testStore(t)

	_, err := store.Search(context.Background(), skillID, []float32{1, 0}, 5, MetricCosine)
	if !errors.Is(err, ErrTableNotFound) {
		t.Errorf("error = %v, want ErrTableNotFound", err)
	}
}

func TestDrop_MissingTableIsNoOp(t *testing.T) {
	store, skillID := testStore(t)

	if err := store.Drop(context.Background(), skillID); err != nil {
		t.Errorf("drop of never-created table: %v", err)
	}
}
