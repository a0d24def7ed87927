package models

import "time"

// Skill is a named collection of ingested documents and their chunks.
// HasKnowledge flips to true the first time any chunk is indexed for it.
type Skill struct {
	ID           string    `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Description  string    `json:"description" db:"description"`
	HasKnowledge bool      `json:"has_knowledge" db:"has_knowledge"`
	InstalledAt  time.Time `json:"installed_at" db:"installed_at"`
}
