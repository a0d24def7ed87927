package models

import (
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Job is one ingestion task: exactly one uploaded file for one skill.
type Job struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	SkillID     string     `json:"skill_id" db:"skill_id"`
	FilePath    string     `json:"file_path,omitempty" db:"file_path"`
	FileName    string     `json:"file_name" db:"file_name"`
	Status      JobStatus  `json:"status" db:"status"`
	Progress    int        `json:"progress" db:"progress"`
	Error       *string    `json:"error,omitempty" db:"error"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
	StartedAt   *time.Time `json:"started_at,omitempty" db:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}
