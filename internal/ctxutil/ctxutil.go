package ctxutil

import (
	"context"
	"time"
)

// приватные ключи, чтобы исключить коллизии
type key int

const (
	keyStudentID key = iota
	keyOpName
)

// WithStudentID /StudentID — ученик, по которому идёт обработка
func WithStudentID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, keyStudentID, id)
}

func StudentID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyStudentID).(string)
	return v, ok
}

// WithOp /Op — имя операции (для логов/трейса)
func WithOp(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, keyOpName, name)
}

func Op(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyOpName).(string)
	return v, ok
}

// Tags — значения контекста в виде тегов для Sentry и полей лога.
func Tags(ctx context.Context) map[string]string {
	tags := make(map[string]string, 2)
	if op, ok := Op(ctx); ok {
		tags["op"] = op
	}
	if id, ok := StudentID(ctx); ok {
		tags["student_id"] = id
	}
	return tags
}

var (
	DefaultDBTimeout = 5 * time.Second
	// на закрытие недели — вся выборка и одна большая транзакция
	SettlementTimeout = 2 * time.Minute
)

// WithTimeout — удобная обёртка над context.WithTimeout.
func WithTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, d)
}

// WithDBTimeout — стандартный таймаут для БД.
func WithDBTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	if dl, ok := parent.Deadline(); ok {
		// если у родителя осталось меньше DefaultDBTimeout — берем остаток
		remain := time.Until(dl)
		if remain < DefaultDBTimeout {
			return context.WithTimeout(parent, remain)
		}
	}
	return context.WithTimeout(parent, DefaultDBTimeout)
}
