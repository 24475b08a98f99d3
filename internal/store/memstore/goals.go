package memstore

import (
	"context"
	"sort"

	"github.com/Spok95/mentoria-engine/internal/clock"
	"github.com/Spok95/mentoria-engine/internal/models"
	"github.com/Spok95/mentoria-engine/internal/store"
)

func sortGoals(gs []models.Goal) {
	sort.Slice(gs, func(i, j int) bool { return gs[i].ID < gs[j].ID })
}

func (s *Store) GetGoal(_ context.Context, studentID, goalID string) (*models.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("GetGoal"); err != nil {
		return nil, err
	}
	g, ok := s.goals[goalID]
	if !ok || g.StudentID != studentID {
		return nil, store.ErrNotFound
	}
	return &g, nil
}

func (s *Store) CreateGoal(_ context.Context, g models.Goal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CreateGoal"); err != nil {
		return err
	}
	s.goals[g.ID] = g
	return nil
}

func (s *Store) ListActiveGoals(_ context.Context, studentID string) ([]models.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ListActiveGoals"); err != nil {
		return nil, err
	}
	var out []models.Goal
	for _, g := range s.goals {
		if g.StudentID == studentID && g.Status == models.GoalActive {
			out = append(out, g)
		}
	}
	sortGoals(out)
	return out, nil
}

func (s *Store) ListTemplates(_ context.Context, studentID string) ([]models.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ListTemplates"); err != nil {
		return nil, err
	}
	var out []models.Goal
	for _, g := range s.goals {
		if g.StudentID == studentID && g.IsTemplate() && g.Status == models.GoalActive {
			out = append(out, g)
		}
	}
	sortGoals(out)
	return out, nil
}

func (s *Store) FindInstance(_ context.Context, studentID, parentID string, day clock.Day) (*models.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("FindInstance"); err != nil {
		return nil, err
	}
	for _, g := range s.goals {
		if g.StudentID == studentID && g.ParentGoalID != nil && *g.ParentGoalID == parentID &&
			g.ReferenceDate != nil && *g.ReferenceDate == day {
			return &g, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) CreateInstanceIfAbsent(_ context.Context, g models.Goal) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CreateInstanceIfAbsent"); err != nil {
		return false, err
	}
	for _, cur := range s.goals {
		if cur.ParentGoalID != nil && g.ParentGoalID != nil && *cur.ParentGoalID == *g.ParentGoalID &&
			cur.ReferenceDate != nil && g.ReferenceDate != nil && *cur.ReferenceDate == *g.ReferenceDate {
			return false, nil
		}
	}
	s.goals[g.ID] = g
	return true, nil
}

func (s *Store) UpdateGoals(_ context.Context, studentID string, goals []models.Goal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("UpdateGoals"); err != nil {
		return err
	}
	for _, g := range goals {
		cur, ok := s.goals[g.ID]
		if !ok || cur.StudentID != studentID {
			return store.ErrNotFound
		}
	}
	for _, g := range goals {
		s.goals[g.ID] = g
	}
	return nil
}

// Goals — снимок всех целей ученика (для тестов).
func (s *Store) Goals(studentID string) []models.Goal {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Goal
	for _, g := range s.goals {
		if g.StudentID == studentID {
			out = append(out, g)
		}
	}
	sortGoals(out)
	return out
}
