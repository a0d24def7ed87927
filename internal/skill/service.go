// Package skill manages the skill registry. Each skill owns one knowledge
// base; deleting a skill drops its vector table along with its row.
package skill

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skillbase-io/skillbase/internal/apperrors"
	"github.com/skillbase-io/skillbase/internal/models"
	"github.com/skillbase-io/skillbase/internal/vectorstore"
)

const skillColumns = `id, name, description, has_knowledge, installed_at`

type Service struct {
	db    *pgxpool.Pool
	store vectorstore.Store
}

func NewService(db *pgxpool.Pool, store vectorstore.Store) *Service {
	return &Service{db: db, store: store}
}

func (s *Service) List(ctx context.Context) ([]*models.Skill, error) {
	rows, err := s.db.Query(ctx, `SELECT `+skillColumns+` FROM skills ORDER BY installed_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list skills: %w", err)
	}
	defer rows.Close()

	var skills []*models.Skill
	for rows.Next() {
		skill, err := scanSkill(rows)
		if err != nil {
			return nil, fmt.Errorf("scan skill: %w", err)
		}
		skills = append(skills, skill)
	}
	return skills, rows.Err()
}

func (s *Service) Get(ctx context.Context, id string) (*models.Skill, error) {
	row := s.db.QueryRow(ctx, `SELECT `+skillColumns+` FROM skills WHERE id = $1`, id)
	skill, err := scanSkill(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("skill", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get skill %s: %w", id, err)
	}
	return skill, nil
}

func (s *Service) Create(ctx context.Context, id, name, description string) (*models.Skill, error) {
	if id == "" {
		return nil, apperrors.Validation("skill id is required")
	}
	if name == "" {
		name = id
	}

	row := s.db.QueryRow(ctx, `
		INSERT INTO skills (id, name, description)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET name = $2, description = $3
		RETURNING `+skillColumns,
		id, name, description,
	)
	skill, err := scanSkill(row)
	if err != nil {
		return nil, fmt.Errorf("create skill %s: %w", id, err)
	}

	slog.Info("skill registered", "skill_id", id)
	return skill, nil
}

// SetHasKnowledge flips the flag that marks whether any chunks have been
// ingested for the skill.
func (s *Service) SetHasKnowledge(ctx context.Context, id string, has bool) error {
	tag, err := s.db.Exec(ctx, `UPDATE skills SET has_knowledge = $2 WHERE id = $1`, id, has)
	if err != nil {
		return fmt.Errorf("update skill %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("skill", id)
	}
	return nil
}

// Delete removes the skill, its jobs (by cascade), and its vector table. A
// skill that never ingested anything has no table; that is not an error.
func (s *Service) Delete(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM skills WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete skill %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("skill", id)
	}

	if err := s.store.Drop(ctx, id); err != nil {
		return fmt.Errorf("drop knowledge for skill %s: %w", id, err)
	}

	slog.Info("skill deleted", "skill_id", id)
	return nil
}

func scanSkill(row pgx.Row) (*models.Skill, error) {
	var sk models.Skill
	err := row.Scan(&sk.ID, &sk.Name, &sk.Description, &sk.HasKnowledge, &sk.InstalledAt)
	if err != nil {
		return nil, err
	}
	return &sk, nil
}
