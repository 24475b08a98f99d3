package db

import (
	"context"
	"time"

	"github.com/Spok95/mentoria-engine/internal/models"
)

// Все выборки фактов — полуинтервал [from, to) по времени факта.

func (s *Store) ListStudies(ctx context.Context, studentID string, from, to time.Time) ([]models.StudyFact, error) {
	var out []models.StudyFact
	err := s.db.SelectContext(ctx, &out, `
		SELECT id, student_id, studied_at, minutes, questions, correct, subject
		FROM studies
		WHERE student_id = $1 AND studied_at >= $2 AND studied_at < $3
		ORDER BY studied_at
	`, studentID, from, to)
	return out, err
}

func (s *Store) ListExams(ctx context.Context, studentID string, from, to time.Time) ([]models.ExamFact, error) {
	var out []models.ExamFact
	err := s.db.SelectContext(ctx, &out, `
		SELECT id, student_id, taken_at, correct, total, area_scores
		FROM exams
		WHERE student_id = $1 AND taken_at >= $2 AND taken_at < $3
		ORDER BY taken_at
	`, studentID, from, to)
	return out, err
}

func (s *Store) ListContentProgress(ctx context.Context, studentID string, from, to time.Time) ([]models.ContentProgressFact, error) {
	var out []models.ContentProgressFact
	err := s.db.SelectContext(ctx, &out, `
		SELECT id, student_id, marked_at, topic_id, completed, incidence
		FROM content_progress
		WHERE student_id = $1 AND marked_at >= $2 AND marked_at < $3
		ORDER BY marked_at
	`, studentID, from, to)
	return out, err
}

func (s *Store) ListEssays(ctx context.Context, studentID string, from, to time.Time) ([]models.EssayFact, error) {
	var out []models.EssayFact
	err := s.db.SelectContext(ctx, &out, `
		SELECT id, student_id, written_at, grade
		FROM essays
		WHERE student_id = $1 AND written_at >= $2 AND written_at < $3
		ORDER BY written_at
	`, studentID, from, to)
	return out, err
}

func (s *Store) ListJournalEntries(ctx context.Context, studentID string, from, to time.Time) ([]models.JournalEntry, error) {
	var out []models.JournalEntry
	err := s.db.SelectContext(ctx, &out, `
		SELECT id, student_id, written_at
		FROM journal_entries
		WHERE student_id = $1 AND written_at >= $2 AND written_at < $3
		ORDER BY written_at
	`, studentID, from, to)
	return out, err
}

// Save* — upsert по id: повторная запись факта его заменяет.

func (s *Store) SaveStudy(ctx context.Context, f models.StudyFact) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO studies (id, student_id, studied_at, minutes, questions, correct, subject)
		VALUES (:id, :student_id, :studied_at, :minutes, :questions, :correct, :subject)
		ON CONFLICT (id) DO UPDATE SET
			studied_at = EXCLUDED.studied_at, minutes = EXCLUDED.minutes,
			questions = EXCLUDED.questions, correct = EXCLUDED.correct, subject = EXCLUDED.subject
	`, f)
	return err
}

func (s *Store) SaveExam(ctx context.Context, f models.ExamFact) error {
	if f.AreaScores == nil {
		f.AreaScores = models.AreaScores{}
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO exams (id, student_id, taken_at, correct, total, area_scores)
		VALUES (:id, :student_id, :taken_at, :correct, :total, :area_scores)
		ON CONFLICT (id) DO UPDATE SET
			taken_at = EXCLUDED.taken_at, correct = EXCLUDED.correct,
			total = EXCLUDED.total, area_scores = EXCLUDED.area_scores
	`, f)
	return err
}

func (s *Store) SaveContentProgress(ctx context.Context, f models.ContentProgressFact) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO content_progress (id, student_id, marked_at, topic_id, completed, incidence)
		VALUES (:id, :student_id, :marked_at, :topic_id, :completed, :incidence)
		ON CONFLICT (id) DO UPDATE SET
			marked_at = EXCLUDED.marked_at, topic_id = EXCLUDED.topic_id,
			completed = EXCLUDED.completed, incidence = EXCLUDED.incidence
	`, f)
	return err
}

func (s *Store) SaveEssay(ctx context.Context, f models.EssayFact) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO essays (id, student_id, written_at, grade)
		VALUES (:id, :student_id, :written_at, :grade)
		ON CONFLICT (id) DO UPDATE SET written_at = EXCLUDED.written_at, grade = EXCLUDED.grade
	`, f)
	return err
}

func (s *Store) SaveJournalEntry(ctx context.Context, f models.JournalEntry) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO journal_entries (id, student_id, written_at)
		VALUES (:id, :student_id, :written_at)
		ON CONFLICT (id) DO UPDATE SET written_at = EXCLUDED.written_at
	`, f)
	return err
}
