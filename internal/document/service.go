// Package document accepts uploads and turns them into ingestion jobs.
package document

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/skillbase-io/skillbase/internal/apperrors"
	"github.com/skillbase-io/skillbase/internal/models"
)

// Enqueuer is the slice of the job queue the upload path needs.
type Enqueuer interface {
	Enqueue(ctx context.Context, skillID, filePath, fileName string) (*models.Job, error)
}

// SkillChecker verifies the target skill exists before a file is accepted.
type SkillChecker interface {
	Get(ctx context.Context, id string) (*models.Skill, error)
}

type Service struct {
	queue      Enqueuer
	skills     SkillChecker
	uploadsDir string
}

func NewService(queue Enqueuer, skills SkillChecker, uploadsDir string) *Service {
	return &Service{queue: queue, skills: skills, uploadsDir: uploadsDir}
}

// Upload stores the file under the uploads directory and enqueues an
// ingestion job for it. Processing happens later, on the worker's clock.
func (s *Service) Upload(ctx context.Context, skillID, fileName string, src io.Reader) (*models.Job, error) {
	if fileName == "" {
		return nil, apperrors.Validation("file name is required")
	}
	if _, err := s.skills.Get(ctx, skillID); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(s.uploadsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads dir: %w", err)
	}

	// Prefix with a fresh id so concurrent uploads of the same name never
	// collide on disk.
	stored := fmt.Sprintf("%s_%s", uuid.New(), sanitizeFileName(fileName))
	path := filepath.Join(s.uploadsDir, stored)

	dst, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create upload file: %w", err)
	}

	written, err := io.Copy(dst, src)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("save upload: %w", err)
	}
	if written == 0 {
		os.Remove(path)
		return nil, apperrors.Validation("uploaded file is empty")
	}

	job, err := s.queue.Enqueue(ctx, skillID, path, fileName)
	if err != nil {
		os.Remove(path)
		return nil, err
	}

	slog.Info("document uploaded", "job_id", job.ID, "skill_id", skillID, "file", fileName, "bytes", written)
	return job, nil
}

// sanitizeFileName strips path components and characters that are unsafe in
// a stored file name.
func sanitizeFileName(name string) string {
	name = filepath.Base(name)
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
