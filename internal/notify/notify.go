// Package notify — единая точка записи уведомлений для обоих движков.
//
// Политика: любая запись уведомления best-effort. Ошибка пишется в лог, Sentry и
// метрики, но не откатывает изменение состояния, из-за которого уведомление возникло
// (в том числе при завершении цели).
package notify

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Spok95/mentoria-engine/internal/clock"
	"github.com/Spok95/mentoria-engine/internal/logging"
	"github.com/Spok95/mentoria-engine/internal/metrics"
	"github.com/Spok95/mentoria-engine/internal/models"
	"github.com/Spok95/mentoria-engine/internal/observability"
)

// Intent — намерение уведомить; считается чистой логикой, пишется Emitter'ом.
type Intent struct {
	StudentID     string
	Kind          models.NotificationKind
	Title         string
	Message       string
	RelatedGoalID *string
}

type Sink interface {
	CreateNotification(ctx context.Context, n models.Notification) error
}

type Emitter struct {
	sink  Sink
	clock clock.Clock
	log   *zap.Logger
}

func NewEmitter(sink Sink, c clock.Clock, log *zap.Logger) *Emitter {
	return &Emitter{sink: sink, clock: c, log: logging.OrNop(log)}
}

// Emit пишет уведомления по очереди и возвращает число неудачных записей.
func (e *Emitter) Emit(ctx context.Context, intents ...Intent) int {
	failed := 0
	for _, in := range intents {
		n := models.Notification{
			ID:            uuid.NewString(),
			StudentID:     in.StudentID,
			Kind:          in.Kind,
			Title:         in.Title,
			Message:       in.Message,
			RelatedGoalID: in.RelatedGoalID,
			CreatedAt:     e.clock.Now(),
		}
		if err := e.sink.CreateNotification(ctx, n); err != nil {
			failed++
			metrics.Notifications.WithLabelValues(string(in.Kind), "error").Inc()
			logging.WithContext(ctx, e.log).Warn("notification write failed",
				zap.String("student_id", in.StudentID),
				zap.String("kind", string(in.Kind)),
				zap.Error(err),
			)
			observability.CaptureCtx(ctx, err, map[string]string{
				"kind": string(in.Kind), "student_id": in.StudentID,
			})
			continue
		}
		metrics.Notifications.WithLabelValues(string(in.Kind), "ok").Inc()
	}
	return failed
}
