package logging

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Spok95/mentoria-engine/internal/ctxutil"
)

func TestWithContext_AddsOpAndStudent(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	ctx := ctxutil.WithOp(ctxutil.WithStudentID(context.Background(), "st-1"), "goals.recompute")

	WithContext(ctx, zap.New(core)).Info("recomputed")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("ожидали одну запись, получили %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["op"] != "goals.recompute" || fields["student_id"] != "st-1" {
		t.Fatalf("поля: %v", fields)
	}
}

func TestWithContext_NilLogger(t *testing.T) {
	WithContext(context.Background(), nil).Info("no-op")
}

func TestInit_BadLevelFallsBackToInfo(t *testing.T) {
	l, err := Init("loud", "prod")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Closer()
	if l.Level.Level() != zap.InfoLevel {
		t.Fatalf("ожидали info, получили %v", l.Level.Level())
	}
	if l.Component("ranking") == nil {
		t.Fatal("нет логгера подсистемы")
	}
}
