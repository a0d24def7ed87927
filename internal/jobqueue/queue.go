// Package jobqueue is the durable ingestion queue. Jobs live in Postgres so
// they survive restarts; dispatch order is strictly oldest-first.
package jobqueue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skillbase-io/skillbase/internal/apperrors"
	"github.com/skillbase-io/skillbase/internal/models"
)

const jobColumns = `id, skill_id, file_path, file_name, status, progress, error,
	created_at, updated_at, started_at, completed_at`

type Queue struct {
	db *pgxpool.Pool
}

func New(db *pgxpool.Pool) *Queue {
	return &Queue{db: db}
}

// Enqueue persists a new pending job. The job's ID, status, and progress are
// assigned here; callers only supply skill and file identity.
func (q *Queue) Enqueue(ctx context.Context, skillID, filePath, fileName string) (*models.Job, error) {
	if skillID == "" {
		return nil, apperrors.Validation("skill id is required")
	}
	if filePath == "" {
		return nil, apperrors.Validation("file path is required")
	}

	row := q.db.QueryRow(ctx, `
		INSERT INTO jobs (id, skill_id, file_path, file_name, status, progress)
		VALUES ($1, $2, $3, $4, 'pending', 0)
		RETURNING `+jobColumns,
		uuid.New(), skillID, filePath, fileName,
	)

	job, err := scanJob(row)
	if err != nil {
		return nil, fmt.Errorf("enqueue job: %w", err)
	}

	slog.Info("job enqueued", "job_id", job.ID, "skill_id", skillID, "file", fileName)
	return job, nil
}

// Dequeue claims the oldest pending job and moves it to processing in a
// single transaction, so concurrent workers can never claim the same job.
// Returns (nil, nil) when the queue is empty.
func (q *Queue) Dequeue(ctx context.Context) (*models.Job, error) {
	tx, err := q.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// seq is a serial assigned at insert, so created_at ties still resolve
	// in insertion order.
	var id uuid.UUID
	err = tx.QueryRow(ctx, `
		SELECT id FROM jobs
		WHERE status = 'pending'
		ORDER BY created_at ASC, seq ASC
		LIMIT 1
		FOR UPDATE SKIP LOCKED`,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select pending job: %w", err)
	}

	row := tx.QueryRow(ctx, `
		UPDATE jobs
		SET status = 'processing', started_at = now(), updated_at = now()
		WHERE id = $1
		RETURNING `+jobColumns, id)

	job, err := scanJob(row)
	if err != nil {
		return nil, fmt.Errorf("claim job %s: %w", id, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit claim: %w", err)
	}
	return job, nil
}

// UpdateProgress records a processing milestone. Failures here are reported
// but must not abort the job; progress is advisory.
func (q *Queue) UpdateProgress(ctx context.Context, id uuid.UUID, progress int) error {
	tag, err := q.db.Exec(ctx, `
		UPDATE jobs SET progress = $2, updated_at = now()
		WHERE id = $1`, id, progress)
	if err != nil {
		return fmt.Errorf("update progress for %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("job", id.String())
	}
	return nil
}

// Complete marks the job completed with its final progress value.
func (q *Queue) Complete(ctx context.Context, id uuid.UUID, progress int) error {
	tag, err := q.db.Exec(ctx, `
		UPDATE jobs
		SET status = 'completed', progress = $2, completed_at = now(), updated_at = now()
		WHERE id = $1`, id, progress)
	if err != nil {
		return fmt.Errorf("complete job %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("job", id.String())
	}
	return nil
}

// Fail marks the job failed and records the error detail. Progress is left at
// the last milestone reached so the failure point stays visible.
func (q *Queue) Fail(ctx context.Context, id uuid.UUID, detail string) error {
	tag, err := q.db.Exec(ctx, `
		UPDATE jobs
		SET status = 'failed', error = $2, completed_at = now(), updated_at = now()
		WHERE id = $1`, id, detail)
	if err != nil {
		return fmt.Errorf("fail job %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("job", id.String())
	}
	return nil
}

func (q *Queue) GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	row := q.db.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)
	job, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("job", id.String())
	}
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	return job, nil
}

// ListBySkill returns a skill's jobs, newest first. An empty status lists all.
func (q *Queue) ListBySkill(ctx context.Context, skillID string, status models.JobStatus) ([]*models.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE skill_id = $1`
	args := []any{skillID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := q.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs for skill %s: %w", skillID, err)
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Stats counts jobs per status. Every status appears in the result even when
// its count is zero.
func (q *Queue) Stats(ctx context.Context) (map[models.JobStatus]int, error) {
	stats := map[models.JobStatus]int{
		models.JobStatusPending:    0,
		models.JobStatusProcessing: 0,
		models.JobStatusCompleted:  0,
		models.JobStatusFailed:     0,
	}

	rows, err := q.db.Query(ctx, `SELECT status, count(*) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status models.JobStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

func scanJob(row pgx.Row) (*models.Job, error) {
	var j models.Job
	err := row.Scan(
		&j.ID, &j.SkillID, &j.FilePath, &j.FileName, &j.Status, &j.Progress,
		&j.Error, &j.CreatedAt, &j.UpdatedAt, &j.StartedAt, &j.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &j, nil
}
