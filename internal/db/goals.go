package db

import (
	"context"
	"fmt"

	"github.com/Spok95/mentoria-engine/internal/clock"
	"github.com/Spok95/mentoria-engine/internal/models"
	"github.com/Spok95/mentoria-engine/internal/store"
)

const goalCols = `id, student_id, type, title, target_value, current_value, unit, status,
	start_date, end_date, completion_date, subject, incidence, is_daily_recurring,
	parent_goal_id, reference_date, last_threshold, created_at, updated_at`

const insertGoal = `
	INSERT INTO goals (` + goalCols + `)
	VALUES (:id, :student_id, :type, :title, :target_value, :current_value, :unit, :status,
		:start_date, :end_date, :completion_date, :subject, :incidence, :is_daily_recurring,
		:parent_goal_id, :reference_date, :last_threshold, :created_at, :updated_at)`

func (s *Store) GetGoal(ctx context.Context, studentID, goalID string) (*models.Goal, error) {
	var g models.Goal
	err := s.db.GetContext(ctx, &g, `SELECT `+goalCols+` FROM goals WHERE student_id = $1 AND id = $2`, studentID, goalID)
	if err != nil {
		return nil, notFound(err)
	}
	return &g, nil
}

func (s *Store) CreateGoal(ctx context.Context, g models.Goal) error {
	_, err := s.db.NamedExecContext(ctx, insertGoal, g)
	return err
}

func (s *Store) ListActiveGoals(ctx context.Context, studentID string) ([]models.Goal, error) {
	var out []models.Goal
	err := s.db.SelectContext(ctx, &out,
		`SELECT `+goalCols+` FROM goals WHERE student_id = $1 AND status = 'active' ORDER BY id`, studentID)
	return out, err
}

func (s *Store) ListTemplates(ctx context.Context, studentID string) ([]models.Goal, error) {
	var out []models.Goal
	err := s.db.SelectContext(ctx, &out, `
		SELECT `+goalCols+` FROM goals
		WHERE student_id = $1 AND is_daily_recurring AND parent_goal_id IS NULL AND status = 'active'
		ORDER BY id
	`, studentID)
	return out, err
}

func (s *Store) FindInstance(ctx context.Context, studentID, parentID string, day clock.Day) (*models.Goal, error) {
	var g models.Goal
	err := s.db.GetContext(ctx, &g, `
		SELECT `+goalCols+` FROM goals
		WHERE student_id = $1 AND parent_goal_id = $2 AND reference_date = $3
	`, studentID, parentID, day)
	if err != nil {
		return nil, notFound(err)
	}
	return &g, nil
}

// CreateInstanceIfAbsent опирается на UNIQUE (parent_goal_id, reference_date).
func (s *Store) CreateInstanceIfAbsent(ctx context.Context, g models.Goal) (bool, error) {
	res, err := s.db.NamedExecContext(ctx, insertGoal+` ON CONFLICT (parent_goal_id, reference_date) DO NOTHING`, g)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// UpdateGoals — одна транзакция на всю пачку.
func (s *Store) UpdateGoals(ctx context.Context, studentID string, goals []models.Goal) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareNamedContext(ctx, `
		UPDATE goals SET
			current_value = :current_value,
			status = :status,
			completion_date = :completion_date,
			last_threshold = :last_threshold,
			updated_at = :updated_at
		WHERE id = :id AND student_id = :student_id
	`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for _, g := range goals {
		if g.StudentID != studentID {
			return fmt.Errorf("goal %s belongs to %s: %w", g.ID, g.StudentID, store.ErrNotFound)
		}
		if err := affected(stmt.ExecContext(ctx, g)); err != nil {
			return fmt.Errorf("update goal %s: %w", g.ID, err)
		}
	}
	return tx.Commit()
}
