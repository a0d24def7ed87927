package jobqueue

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skillbase-io/skillbase/internal/apperrors"
	"github.com/skillbase-io/skillbase/internal/models"
)

// testQueue connects to the database named by TEST_DATABASE_URL and registers
// a fresh skill for the test to hang jobs off. Tests are skipped when no test
// database is configured.
func testQueue(t *testing.T) (*Queue, string) {
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

	skillID := fmt.Sprintf("qtest_%d", time.Now().UnixNano())
	_, err = pool.Exec(ctx, `INSERT INTO skills (id, name) VALUES ($1, $1)`, skillID)
	if err != nil {
		t.Fatalf("create test skill: %v", err)
	}
	t.Cleanup(func() {
		// jobs cascade with the skill
		pool.Exec(context.Background(), `DELETE FROM skills WHERE id = $1`, skillID)
	})

	return New(pool), skillID
}

func TestEnqueueDequeue_FIFO(t *testing.T) {
	q, skillID := testQueue(t)
	ctx := context.Background()

	first, err := q.Enqueue(ctx, skillID, "/tmp/a.pdf", "a.pdf")
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	second, err := q.Enqueue(ctx, skillID, "/tmp/b.pdf", "b.pdf")
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	got, err := q.Dequeue(ctx)
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if got == nil || got.ID != first.ID {
		t.Fatalf("dequeued %v, want oldest job %s", got, first.ID)
	}
	if got.Status != models.JobStatusProcessing {
		t.Errorf("status = %s, want processing", got.Status)
	}
	if got.StartedAt == nil {
		t.Error("started_at not set on claim")
	}

	got, err = q.Dequeue(ctx)
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if got == nil || got.ID != second.ID {
		t.Fatalf("second dequeue returned %v, want %s", got, second.ID)
	}
}

func TestDequeue_BurstKeepsInsertionOrder(t *testing.T) {
	q, skillID := testQueue(t)
	ctx := context.Background()

	// Enqueued back to back, several jobs can share a created_at timestamp;
	// dequeue order must still match enqueue order.
	var enqueued []uuid.UUID
	for i := 0; i < 5; i++ {
		job, err := q.Enqueue(ctx, skillID, fmt.Sprintf("/tmp/burst_%d.txt", i), fmt.Sprintf("burst_%d.txt", i))
		if err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
		enqueued = append(enqueued, job.ID)
	}

	for i, want := range enqueued {
		got, err := q.Dequeue(ctx)
		if err != nil {
			t.Fatalf("dequeue %d: %v", i, err)
		}
		if got == nil || got.ID != want {
			t.Fatalf("dequeue %d returned %v, want %s", i, got, want)
		}
	}
}

func TestDequeue_EmptyQueue(t *testing.T) {
	q, skillID := testQueue(t)
	ctx := context.Background()

	// Drain anything pending for other tests' skills is not possible here,
	// so scope the check: a skill with no jobs must not produce a claim.
	jobs, err := q.ListBySkill(ctx, skillID, models.JobStatusPending)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(jobs) != 0 {
		t.Fatalf("fresh skill has %d pending jobs", len(jobs))
	}
}

func TestDequeue_ClaimIsExclusive(t *testing.T) {
	q, skillID := testQueue(t)
	ctx := context.Background()

	job, err := q.Enqueue(ctx, skillID, "/tmp/c.pdf", "c.pdf")
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	claimed, err := q.Dequeue(ctx)
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if claimed == nil || claimed.ID != job.ID {
		t.Fatalf("claimed %v, want %s", claimed, job.ID)
	}

	// The job is processing now; a second dequeue must not return it.
	again, err := q.Dequeue(ctx)
	if err != nil {
		t.Fatalf("second dequeue: %v", err)
	}
	if again != nil && again.ID == job.ID {
		t.Error("job claimed twice")
	}
}

func TestDequeue_ConcurrentClaims(t *testing.T) {
	q, skillID := testQueue(t)
	ctx := context.Background()

	job, err := q.Enqueue(ctx, skillID, "/tmp/race.pdf", "race.pdf")
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	// With one pending job, two simultaneous claims must resolve to exactly
	// one winner.
	type result struct {
		job *models.Job
		err error
	}
	results := make(chan result, 2)
	var start sync.WaitGroup
	start.Add(1)
	for i := 0; i < 2; i++ {
		go func() {
			start.Wait()
			j, err := q.Dequeue(ctx)
			results <- result{job: j, err: err}
		}()
	}
	start.Done()

	var wins int
	for i := 0; i < 2; i++ {
		r := <-results
		if r.err != nil {
			t.Fatalf("dequeue: %v", r.err)
		}
		if r.job != nil && r.job.ID == job.ID {
			wins++
		}
	}
	if wins != 1 {
		t.Errorf("job claimed by %d callers, want exactly 1", wins)
	}
}

func TestJobLifecycle_Complete(t *testing.T) {
	q, skillID := testQueue(t)
	ctx := context.Background()

	job, err := q.Enqueue(ctx, skillID, "/tmp/d.txt", "d.txt")
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if _, err := q.Dequeue(ctx); err != nil {
		t.Fatalf("dequeue: %v", err)
	}

	for _, p := range []int{10, 30, 50, 80} {
		if err := q.UpdateProgress(ctx, job.ID, p); err != nil {
			t.Fatalf("progress %d: %v", p, err)
		}
	}
	if err := q.Complete(ctx, job.ID, 100); err != nil {
		t.Fatalf("complete: %v", err)
	}

	got, err := q.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != models.JobStatusCompleted || got.Progress != 100 {
		t.Errorf("job = %s/%d, want completed/100", got.Status, got.Progress)
	}
	if got.CompletedAt == nil {
		t.Error("completed_at not set")
	}
	if got.Error != nil {
		t.Errorf("error = %q, want nil", *got.Error)
	}
}

func TestJobLifecycle_Fail(t *testing.T) {
	q, skillID := testQueue(t)
	ctx := context.Background()

	job, err := q.Enqueue(ctx, skillID, "/tmp/e.txt", "e.txt")
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if _, err := q.Dequeue(ctx); err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if err := q.UpdateProgress(ctx, job.ID, 50); err != nil {
		t.Fatalf("progress: %v", err)
	}

	if err := q.Fail(ctx, job.ID, "embedding service unavailable"); err != nil {
		t.Fatalf("fail: %v", err)
	}

	got, err := q.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != models.JobStatusFailed {
		t.Errorf("status = %s, want failed", got.Status)
	}
	if got.Error == nil || *got.Error != "embedding service unavailable" {
		t.Errorf("error detail = %v", got.Error)
	}
	if got.Progress != 50 {
		t.Errorf("progress = %d, want last milestone 50", got.Progress)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	q, _ := testQueue(t)

	_, err := q.GetByID(context.Background(), uuid.New())
	var nf *apperrors.NotFoundError
	if !errors.As(err, &nf) {
		t.Errorf("error = %v, want NotFoundError", err)
	}
}

func TestStats_AllStatusesPresent(t *testing.T) {
	q, skillID := testQueue(t)
	ctx := context.Background()

	if _, err := q.Enqueue(ctx, skillID, "/tmp/f.txt", "f.txt"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	stats, err := q.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	for _, status := range []models.JobStatus{
		models.JobStatusPending, models.JobStatusProcessing,
		models.JobStatusCompleted, models.JobStatusFailed,
	} {
		if _, ok := stats[status]; !ok {
			t.Errorf("stats missing status %s", status)
		}
	}
	if stats[models.JobStatusPending] < 1 {
		t.Errorf("pending = %d, want at least 1", stats[models.JobStatusPending])
	}
}

func TestEnqueue_Validation(t *testing.T) {
	q, skillID := testQueue(t)
	ctx := context.Background()

	var vErr *apperrors.ValidationError
	if _, err := q.Enqueue(ctx, "", "/tmp/x", "x"); !errors.As(err, &vErr) {
		t.Errorf("empty skill id: error = %v, want ValidationError", err)
	}
	if _, err := q.Enqueue(ctx, skillID, "", "x"); !errors.As(err, &vErr) {
		t.Errorf("empty file path: error = %v, want ValidationError", err)
	}
}
