package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Spok95/mentoria-engine/internal/goals"
	"github.com/Spok95/mentoria-engine/internal/models"
	"github.com/Spok95/mentoria-engine/internal/ranking"
	"github.com/Spok95/mentoria-engine/internal/store/memstore"
)

type triggerCall struct {
	studentID string
	kind      models.FactKind
}

type fakeTrigger struct {
	calls []triggerCall
	err   error
}

func (f *fakeTrigger) FactWritten(_ context.Context, studentID string, kind models.FactKind) error {
	f.calls = append(f.calls, triggerCall{studentID, kind})
	return f.err
}

func TestRecord_StudyIsValidatedStoredAndTriggered(t *testing.T) {
	ms := memstore.New()
	tr := &fakeTrigger{}
	r := NewRecorder(ms, tr, nil, nil)
	ctx := context.Background()

	body := []byte(`{"studiedAt":"2026-10-14T09:00:00-03:00","tempoMinutos":90,"questoesFeitas":20,"acertos":15,"materia":"matematica"}`)
	got, err := r.Record(ctx, models.FactStudy, "st", body)
	if err != nil {
		t.Fatal(err)
	}
	f := got.(models.StudyFact)
	if f.ID == "" || f.StudentID != "st" || f.Minutes != 90 {
		t.Fatalf("факт: %#v", f)
	}
	from := time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)
	saved, _ := ms.ListStudies(ctx, "st", from, from.Add(48*time.Hour))
	if len(saved) != 1 {
		t.Fatalf("ожидали 1 сохранённый факт, получили %d", len(saved))
	}
	if len(tr.calls) != 1 || tr.calls[0] != (triggerCall{"st", models.FactStudy}) {
		t.Fatalf("триггер: %#v", tr.calls)
	}
}

func TestRecord_Rejects(t *testing.T) {
	ms := memstore.New()
	tr := &fakeTrigger{}
	r := NewRecorder(ms, tr, nil, nil)
	ctx := context.Background()

	cases := []struct {
		name string
		kind models.FactKind
		body string
		want error
	}{
		{"acertos больше questões", models.FactStudy, `{"studiedAt":"2026-10-14T09:00:00Z","questoesFeitas":5,"acertos":9}`, ErrInvalidFact},
		{"отрицательные минуты", models.FactStudy, `{"studiedAt":"2026-10-14T09:00:00Z","tempoMinutos":-5}`, ErrInvalidFact},
		{"без даты", models.FactExam, `{"acertos":10,"totalQuestoes":20}`, ErrInvalidFact},
		{"неизвестное поле", models.FactJournal, `{"writtenAt":"2026-10-14T09:00:00Z","mood":"ok"}`, ErrInvalidFact},
		{"нота больше 1000", models.FactEssay, `{"writtenAt":"2026-10-14T09:00:00Z","nota":1200}`, ErrInvalidFact},
		{"битый JSON", models.FactExam, `{`, ErrInvalidFact},
		{"неизвестный вид", "podcasts", `{}`, ErrUnknownKind},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if _, err := r.Record(ctx, c.kind, "st", []byte(c.body)); !errors.Is(err, c.want) {
				t.Fatalf("ожидали %v, получили %v", c.want, err)
			}
		})
	}
	if len(tr.calls) != 0 {
		t.Fatalf("невалидные факты не должны запускать пересчёт: %#v", tr.calls)
	}
}

func TestRecord_TriggerFailureKeepsFact(t *testing.T) {
	ms := memstore.New()
	r := NewRecorder(ms, &fakeTrigger{err: errors.New("recompute failed")}, nil, nil)
	ctx := context.Background()

	_, err := r.Record(ctx, models.FactEssay, "st", []byte(`{"id":"e1","writtenAt":"2026-10-14T09:00:00Z","nota":880}`))
	if err != nil {
		t.Fatalf("ошибка пересчёта не должна отменять запись: %v", err)
	}
	from := time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)
	if es, _ := ms.ListEssays(ctx, "st", from, from.Add(24*time.Hour)); len(es) != 1 || es[0].ID != "e1" {
		t.Fatalf("эссе: %#v", es)
	}
}

func TestRegisterStudent(t *testing.T) {
	ms := memstore.New()
	r := NewRecorder(ms, nil, nil, nil)
	ctx := context.Background()
	if _, err := r.RegisterStudent(ctx, models.Student{}); !errors.Is(err, ErrInvalidFact) {
		t.Fatalf("пустой id: %v", err)
	}
	if _, err := r.RegisterStudent(ctx, models.Student{ID: "st", Name: "Ana"}); err != nil {
		t.Fatal(err)
	}
	ids, _ := ms.ListStudentIDs(ctx)
	if len(ids) != 1 || ids[0] != "st" {
		t.Fatalf("ученики: %v", ids)
	}
}

type fakeGoals struct {
	calls int
	err   error
}

func (f *fakeGoals) Recompute(context.Context, string) (goals.RecomputeResult, error) {
	f.calls++
	return goals.RecomputeResult{}, f.err
}

type fakeRanking struct {
	calls int
	err   error
}

func (f *fakeRanking) RefreshLiveScore(context.Context, string) (ranking.LiveScore, error) {
	f.calls++
	return ranking.LiveScore{}, f.err
}

func TestDispatcher_RoutesByKind(t *testing.T) {
	cases := []struct {
		kind          models.FactKind
		goals, scores int
	}{
		{models.FactStudy, 1, 1},
		{models.FactExam, 1, 1},
		{models.FactContentProgress, 1, 0},
		{models.FactEssay, 0, 1},
		{models.FactJournal, 0, 1},
	}
	for _, c := range cases {
		g, r := &fakeGoals{}, &fakeRanking{}
		if err := NewDispatcher(g, r, nil).FactWritten(context.Background(), "st", c.kind); err != nil {
			t.Fatal(err)
		}
		if g.calls != c.goals || r.calls != c.scores {
			t.Fatalf("%s: цели %d, очки %d", c.kind, g.calls, r.calls)
		}
	}
}

func TestDispatcher_JoinsErrors(t *testing.T) {
	errGoals, errRank := errors.New("goals down"), errors.New("ranking down")
	g, r := &fakeGoals{err: errGoals}, &fakeRanking{err: errRank}

	err := NewDispatcher(g, r, nil).FactWritten(context.Background(), "st", models.FactStudy)
	if !errors.Is(err, errGoals) || !errors.Is(err, errRank) {
		t.Fatalf("ожидали обе ошибки, получили %v", err)
	}
	if r.calls != 1 {
		t.Fatal("ошибка целей не должна мешать пересчёту очков")
	}
}

type slowGoals struct {
	mu      sync.Mutex
	running int
	maxSeen int
}

func (s *slowGoals) Recompute(context.Context, string) (goals.RecomputeResult, error) {
	s.mu.Lock()
	s.running++
	if s.running > s.maxSeen {
		s.maxSeen = s.running
	}
	s.mu.Unlock()
	time.Sleep(5 * time.Millisecond)
	s.mu.Lock()
	s.running--
	s.mu.Unlock()
	return goals.RecomputeResult{}, nil
}

func TestDispatcher_SerializesPerStudent(t *testing.T) {
	g := &slowGoals{}
	d := NewDispatcher(g, nil, nil)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = d.FactWritten(context.Background(), "st", models.FactStudy)
		}()
	}
	wg.Wait()
	if g.maxSeen != 1 {
		t.Fatalf("пересчёты одного ученика пересеклись: %d", g.maxSeen)
	}
	if n := d.limiter.size(); n != 0 {
		t.Fatalf("замки учеников не освобождены: %d", n)
	}
}

func TestStudentLimiter_ForgetsIdleStudents(t *testing.T) {
	l := NewStudentLimiter()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			unlock := l.lock(fmt.Sprintf("st-%d", i%5))
			time.Sleep(time.Millisecond)
			unlock()
		}(i)
	}
	wg.Wait()
	if n := l.size(); n != 0 {
		t.Fatalf("ожидали пустую таблицу после отпускания, получили %d", n)
	}

	unlock := l.lock("st-0")
	if n := l.size(); n != 1 {
		t.Fatalf("ожидали одну запись, пока замок держат, получили %d", n)
	}
	unlock()
	if n := l.size(); n != 0 {
		t.Fatalf("ожидали 0, получили %d", n)
	}
}
