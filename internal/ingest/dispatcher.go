package ingest

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Spok95/mentoria-engine/internal/ctxutil"
	"github.com/Spok95/mentoria-engine/internal/goals"
	"github.com/Spok95/mentoria-engine/internal/logging"
	"github.com/Spok95/mentoria-engine/internal/models"
	"github.com/Spok95/mentoria-engine/internal/observability"
	"github.com/Spok95/mentoria-engine/internal/ranking"
)

type GoalRecomputer interface {
	Recompute(ctx context.Context, studentID string) (goals.RecomputeResult, error)
}

type ScoreRefresher interface {
	RefreshLiveScore(ctx context.Context, studentID string) (ranking.LiveScore, error)
}

// Dispatcher — обработчик записи факта: пересчёт целей (занятия, симуляды,
// прогресс по темам) и живых недельных очков (всё, что входит в формулу).
// Пересчёты одного ученика в процессе идут по очереди.
type Dispatcher struct {
	goals   GoalRecomputer
	ranking ScoreRefresher
	limiter *StudentLimiter
	log     *zap.Logger
}

func NewDispatcher(g GoalRecomputer, r ScoreRefresher, log *zap.Logger) *Dispatcher {
	return &Dispatcher{goals: g, ranking: r, limiter: NewStudentLimiter(), log: logging.OrNop(log)}
}

func affectsGoals(kind models.FactKind) bool {
	switch kind {
	case models.FactStudy, models.FactExam, models.FactContentProgress:
		return true
	}
	return false
}

func affectsScore(kind models.FactKind) bool {
	switch kind {
	case models.FactStudy, models.FactExam, models.FactEssay, models.FactJournal:
		return true
	}
	return false
}

func (d *Dispatcher) FactWritten(ctx context.Context, studentID string, kind models.FactKind) error {
	unlock := d.limiter.lock(studentID)
	defer unlock()

	var errs []error
	if d.goals != nil && affectsGoals(kind) {
		if _, err := d.goals.Recompute(ctx, studentID); err != nil {
			errs = append(errs, fmt.Errorf("goals: %w", err))
		}
	}
	if d.ranking != nil && affectsScore(kind) {
		if _, err := d.ranking.RefreshLiveScore(ctx, studentID); err != nil {
			errs = append(errs, fmt.Errorf("ranking: %w", err))
		}
	}
	err := errors.Join(errs...)
	if err != nil {
		d.log.Error("fact-written trigger failed",
			zap.String("student_id", studentID), zap.String("kind", string(kind)), zap.Error(err))
		observability.CaptureCtx(ctxutil.WithOp(ctx, "fact-written"), err,
			map[string]string{"kind": string(kind), "student_id": studentID})
	}
	return err
}
