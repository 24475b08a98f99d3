// Package ingest — граница записи фактов: проверка схемы, сохранение и
// запуск пересчёта целей и недельных очков ученика.
package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Spok95/mentoria-engine/internal/logging"
	"github.com/Spok95/mentoria-engine/internal/models"
)

var (
	ErrInvalidFact = errors.New("invalid fact")
	ErrUnknownKind = errors.New("unknown fact kind")
)

type Store interface {
	UpsertStudent(ctx context.Context, st models.Student) error

	SaveStudy(ctx context.Context, f models.StudyFact) error
	SaveExam(ctx context.Context, f models.ExamFact) error
	SaveContentProgress(ctx context.Context, f models.ContentProgressFact) error
	SaveEssay(ctx context.Context, f models.EssayFact) error
	SaveJournalEntry(ctx context.Context, f models.JournalEntry) error
}

// Trigger вызывается после каждой записи факта (создание и изменение одинаковы).
type Trigger interface {
	FactWritten(ctx context.Context, studentID string, kind models.FactKind) error
}

type Recorder struct {
	store    Store
	trigger  Trigger
	validate *validator.Validate
	now      func() time.Time
	log      *zap.Logger
}

func NewRecorder(st Store, tr Trigger, now func() time.Time, log *zap.Logger) *Recorder {
	if now == nil {
		now = time.Now
	}
	return &Recorder{store: st, trigger: tr, validate: validator.New(), now: now, log: logging.OrNop(log)}
}

func (r *Recorder) check(v any) error {
	if err := r.validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidFact, err)
	}
	return nil
}

// RegisterStudent добавляет ученика в список, по которому ходят еженедельные и суточные задачи.
func (r *Recorder) RegisterStudent(ctx context.Context, st models.Student) (models.Student, error) {
	if st.ID == "" {
		return st, fmt.Errorf("%w: empty student id", ErrInvalidFact)
	}
	if st.CreatedAt.IsZero() {
		st.CreatedAt = r.now()
	}
	if err := r.store.UpsertStudent(ctx, st); err != nil {
		return st, fmt.Errorf("upsert student %s: %w", st.ID, err)
	}
	return st, nil
}

// Record разбирает JSON факта указанного вида, проверяет его, сохраняет и запускает пересчёт.
// Ошибка пересчёта не отменяет запись: факт уже сохранён, следующий триггер всё догонит.
func (r *Recorder) Record(ctx context.Context, kind models.FactKind, studentID string, body []byte) (any, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	fact, err := r.save(ctx, kind, studentID, body)
	if err != nil {
		return nil, err
	}
	if r.trigger != nil {
		if err := r.trigger.FactWritten(ctx, studentID, kind); err != nil {
			r.log.Warn("fact trigger failed",
				zap.String("student_id", studentID), zap.String("kind", string(kind)), zap.Error(err))
		}
	}
	return fact, nil
}

func decode(body []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidFact, err)
	}
	return nil
}

func newID(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}

func (r *Recorder) save(ctx context.Context, kind models.FactKind, studentID string, body []byte) (any, error) {
	switch kind {
	case models.FactStudy:
		var f models.StudyFact
		if err := decode(body, &f); err != nil {
			return nil, err
		}
		f.ID, f.StudentID = newID(f.ID), studentID
		if err := r.check(f); err != nil {
			return nil, err
		}
		return f, wrapSave(kind, r.store.SaveStudy(ctx, f))
	case models.FactExam:
		var f models.ExamFact
		if err := decode(body, &f); err != nil {
			return nil, err
		}
		f.ID, f.StudentID = newID(f.ID), studentID
		if err := r.check(f); err != nil {
			return nil, err
		}
		return f, wrapSave(kind, r.store.SaveExam(ctx, f))
	case models.FactContentProgress:
		var f models.ContentProgressFact
		if err := decode(body, &f); err != nil {
			return nil, err
		}
		f.ID, f.StudentID = newID(f.ID), studentID
		if err := r.check(f); err != nil {
			return nil, err
		}
		return f, wrapSave(kind, r.store.SaveContentProgress(ctx, f))
	case models.FactEssay:
		var f models.EssayFact
		if err := decode(body, &f); err != nil {
			return nil, err
		}
		f.ID, f.StudentID = newID(f.ID), studentID
		if err := r.check(f); err != nil {
			return nil, err
		}
		return f, wrapSave(kind, r.store.SaveEssay(ctx, f))
	case models.FactJournal:
		var f models.JournalEntry
		if err := decode(body, &f); err != nil {
			return nil, err
		}
		f.ID, f.StudentID = newID(f.ID), studentID
		if err := r.check(f); err != nil {
			return nil, err
		}
		return f, wrapSave(kind, r.store.SaveJournalEntry(ctx, f))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

func wrapSave(kind models.FactKind, err error) error {
	if err != nil {
		return fmt.Errorf("save %s: %w", kind, err)
	}
	return nil
}
