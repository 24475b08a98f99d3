package memstore

import (
	"context"
	"time"

	"github.com/Spok95/mentoria-engine/internal/models"
)

func inRange(t, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}

func (s *Store) ListStudies(_ context.Context, studentID string, from, to time.Time) ([]models.StudyFact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ListStudies"); err != nil {
		return nil, err
	}
	var out []models.StudyFact
	for _, f := range s.studies {
		if f.StudentID == studentID && inRange(f.StudiedAt, from, to) {
			out = append(out, f)
		}
	}
	return out, nil
}

func (s *Store) ListExams(_ context.Context, studentID string, from, to time.Time) ([]models.ExamFact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ListExams"); err != nil {
		return nil, err
	}
	var out []models.ExamFact
	for _, f := range s.exams {
		if f.StudentID == studentID && inRange(f.TakenAt, from, to) {
			out = append(out, f)
		}
	}
	return out, nil
}

func (s *Store) ListContentProgress(_ context.Context, studentID string, from, to time.Time) ([]models.ContentProgressFact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ListContentProgress"); err != nil {
		return nil, err
	}
	var out []models.ContentProgressFact
	for _, f := range s.progress {
		if f.StudentID == studentID && inRange(f.MarkedAt, from, to) {
			out = append(out, f)
		}
	}
	return out, nil
}

func (s *Store) ListEssays(_ context.Context, studentID string, from, to time.Time) ([]models.EssayFact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ListEssays"); err != nil {
		return nil, err
	}
	var out []models.EssayFact
	for _, f := range s.essays {
		if f.StudentID == studentID && inRange(f.WrittenAt, from, to) {
			out = append(out, f)
		}
	}
	return out, nil
}

func (s *Store) ListJournalEntries(_ context.Context, studentID string, from, to time.Time) ([]models.JournalEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ListJournalEntries"); err != nil {
		return nil, err
	}
	var out []models.JournalEntry
	for _, f := range s.journal {
		if f.StudentID == studentID && inRange(f.WrittenAt, from, to) {
			out = append(out, f)
		}
	}
	return out, nil
}

// Save* — upsert по ID, как повторная запись документа.

func (s *Store) SaveStudy(_ context.Context, f models.StudyFact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("SaveStudy"); err != nil {
		return err
	}
	for i := range s.studies {
		if s.studies[i].ID == f.ID {
			s.studies[i] = f
			return nil
		}
	}
	s.studies = append(s.studies, f)
	return nil
}

func (s *Store) SaveExam(_ context.Context, f models.ExamFact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("SaveExam"); err != nil {
		return err
	}
	for i := range s.exams {
		if s.exams[i].ID == f.ID {
			s.exams[i] = f
			return nil
		}
	}
	s.exams = append(s.exams, f)
	return nil
}

func (s *Store) SaveContentProgress(_ context.Context, f models.ContentProgressFact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("SaveContentProgress"); err != nil {
		return err
	}
	for i := range s.progress {
		if s.progress[i].ID == f.ID {
			s.progress[i] = f
			return nil
		}
	}
	s.progress = append(s.progress, f)
	return nil
}

func (s *Store) SaveEssay(_ context.Context, f models.EssayFact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("SaveEssay"); err != nil {
		return err
	}
	for i := range s.essays {
		if s.essays[i].ID == f.ID {
			s.essays[i] = f
			return nil
		}
	}
	s.essays = append(s.essays, f)
	return nil
}

func (s *Store) SaveJournalEntry(_ context.Context, f models.JournalEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("SaveJournalEntry"); err != nil {
		return err
	}
	for i := range s.journal {
		if s.journal[i].ID == f.ID {
			s.journal[i] = f
			return nil
		}
	}
	s.journal = append(s.journal, f)
	return nil
}
