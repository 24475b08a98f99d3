// Package goals — движок прогресса целей: калькуляторы по типам фактов,
// уведомления о порогах и суточный цикл ежедневных целей.
package goals

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Spok95/mentoria-engine/internal/clock"
	"github.com/Spok95/mentoria-engine/internal/ctxutil"
	"github.com/Spok95/mentoria-engine/internal/logging"
	"github.com/Spok95/mentoria-engine/internal/metrics"
	"github.com/Spok95/mentoria-engine/internal/models"
	"github.com/Spok95/mentoria-engine/internal/notify"
	"github.com/Spok95/mentoria-engine/internal/observability"
	"github.com/Spok95/mentoria-engine/internal/store"
)

var ErrInvalidGoal = errors.New("invalid goal")

type Store interface {
	ListStudentIDs(ctx context.Context) ([]string, error)

	GetGoal(ctx context.Context, studentID, goalID string) (*models.Goal, error)
	CreateGoal(ctx context.Context, g models.Goal) error
	ListActiveGoals(ctx context.Context, studentID string) ([]models.Goal, error)
	ListTemplates(ctx context.Context, studentID string) ([]models.Goal, error)
	FindInstance(ctx context.Context, studentID, parentID string, day clock.Day) (*models.Goal, error)
	CreateInstanceIfAbsent(ctx context.Context, g models.Goal) (bool, error)
	UpdateGoals(ctx context.Context, studentID string, goals []models.Goal) error

	ListStudies(ctx context.Context, studentID string, from, to time.Time) ([]models.StudyFact, error)
	ListExams(ctx context.Context, studentID string, from, to time.Time) ([]models.ExamFact, error)
	ListContentProgress(ctx context.Context, studentID string, from, to time.Time) ([]models.ContentProgressFact, error)
}

type Notifier interface {
	Emit(ctx context.Context, intents ...notify.Intent) int
}

type Service struct {
	store    Store
	clock    clock.Clock
	loc      *time.Location
	notifier Notifier
	validate *validator.Validate
	log      *zap.Logger
}

func NewService(st Store, c clock.Clock, loc *time.Location, n Notifier, log *zap.Logger) *Service {
	return &Service{
		store:    st,
		clock:    c,
		loc:      loc,
		notifier: n,
		validate: validator.New(),
		log:      logging.OrNop(log),
	}
}

func (s *Service) emit(ctx context.Context, intents []notify.Intent) {
	if s.notifier == nil || len(intents) == 0 {
		return
	}
	s.notifier.Emit(ctx, intents...)
}

// NewGoal — входные данные для создания цели.
type NewGoal struct {
	StudentID        string          `json:"-" validate:"required"`
	Type             models.GoalType `json:"type" validate:"required,oneof=hours questions mockExams topics streak examScore"`
	Title            string          `json:"title" validate:"required,max=200"`
	TargetValue      float64         `json:"targetValue" validate:"gt=0"`
	Unit             string          `json:"unit" validate:"max=32"`
	StartDate        clock.Day       `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate          clock.Day       `json:"endDate" validate:"required,datetime=2006-01-02"`
	Subject          *string         `json:"subject,omitempty"`
	Incidence        *string         `json:"incidence,omitempty"`
	IsDailyRecurring bool            `json:"isDailyRecurring"`
}

// CreateGoal сохраняет новую цель. Для ежедневного шаблона сразу заводится
// экземпляр на сегодня, если сегодня попадает в его окно.
func (s *Service) CreateGoal(ctx context.Context, in NewGoal) (models.Goal, error) {
	if err := s.validate.Struct(in); err != nil {
		return models.Goal{}, fmt.Errorf("%w: %w", ErrInvalidGoal, err)
	}
	if in.EndDate.Before(in.StartDate) {
		return models.Goal{}, fmt.Errorf("%w: endDate before startDate", ErrInvalidGoal)
	}
	now := s.clock.Now()
	g := models.Goal{
		ID:               uuid.NewString(),
		StudentID:        in.StudentID,
		Type:             in.Type,
		Title:            in.Title,
		TargetValue:      in.TargetValue,
		Unit:             in.Unit,
		Status:           models.GoalActive,
		StartDate:        in.StartDate,
		EndDate:          in.EndDate,
		Subject:          in.Subject,
		Incidence:        in.Incidence,
		IsDailyRecurring: in.IsDailyRecurring,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.store.CreateGoal(ctx, g); err != nil {
		return models.Goal{}, fmt.Errorf("create goal: %w", err)
	}
	s.emit(ctx, []notify.Intent{createdIntent(g)})

	today := clock.DayOf(now, s.loc)
	if g.IsTemplate() && inWindow(g, today) {
		if _, err := s.store.CreateInstanceIfAbsent(ctx, newInstance(g, today, now)); err != nil {
			// экземпляр всё равно появится в полночь
			s.log.Warn("daily instance create failed", zap.String("goal_id", g.ID), zap.Error(err))
		}
	}
	return g, nil
}

func (s *Service) ActiveGoals(ctx context.Context, studentID string) ([]models.Goal, error) {
	return s.store.ListActiveGoals(ctx, studentID)
}

func (s *Service) Goal(ctx context.Context, studentID, goalID string) (models.Goal, error) {
	g, err := s.store.GetGoal(ctx, studentID, goalID)
	if err != nil {
		return models.Goal{}, err
	}
	return *g, nil
}

func inWindow(g models.Goal, d clock.Day) bool {
	return !d.Before(g.StartDate) && !d.After(g.EndDate)
}

func newInstance(tpl models.Goal, day clock.Day, now time.Time) models.Goal {
	parent := tpl.ID
	ref := day
	return models.Goal{
		ID:            uuid.NewString(),
		StudentID:     tpl.StudentID,
		Type:          tpl.Type,
		Title:         tpl.Title,
		TargetValue:   tpl.TargetValue,
		Unit:          tpl.Unit,
		Status:        models.GoalActive,
		StartDate:     day,
		EndDate:       day,
		Subject:       tpl.Subject,
		Incidence:     tpl.Incidence,
		ParentGoalID:  &parent,
		ReferenceDate: &ref,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

type RecomputeResult struct {
	Evaluated     int `json:"evaluated"`
	Updated       int `json:"updated"`
	Completed     int `json:"completed"`
	Notifications int `json:"notifications"`
}

// eligible — активные цели, которые пересчитывает триггер факта: без шаблонов,
// без экземпляров не за сегодня и без целей с прошедшим сроком (их закрывает RunDaily).
func eligible(goals []models.Goal, today clock.Day) []models.Goal {
	out := goals[:0:0]
	for _, g := range goals {
		if g.Status != models.GoalActive || g.IsTemplate() {
			continue
		}
		if !g.IsInstance() && today.After(g.EndDate) {
			continue
		}
		if g.IsInstance() && (g.ReferenceDate == nil || *g.ReferenceDate != today) {
			continue
		}
		out = append(out, g)
	}
	return out
}

func (s *Service) loadFacts(ctx context.Context, studentID string, goals []models.Goal, today clock.Day) (Facts, error) {
	var (
		from, to  time.Time
		studyFrom time.Time
		f         Facts
		err       error
	)
	for i, g := range goals {
		w := goalWindow(g, s.loc)
		if i == 0 || w.from.Before(from) {
			from = w.from
		}
		if i == 0 || w.to.After(to) {
			to = w.to
		}
	}
	if end := today.End(s.loc); end.After(to) {
		to = end
	}
	studyFrom = from
	for _, g := range goals {
		if g.Type == models.GoalStreak {
			if lb := today.AddDays(-StreakLookbackDays).Start(s.loc); lb.Before(studyFrom) {
				studyFrom = lb
			}
			break
		}
	}

	if f.Studies, err = s.store.ListStudies(ctx, studentID, studyFrom, to); err != nil {
		return f, fmt.Errorf("list studies: %w", err)
	}
	if f.Exams, err = s.store.ListExams(ctx, studentID, from, to); err != nil {
		return f, fmt.Errorf("list exams: %w", err)
	}
	if f.Progress, err = s.store.ListContentProgress(ctx, studentID, from, to); err != nil {
		return f, fmt.Errorf("list content progress: %w", err)
	}
	return f, nil
}

// Recompute пересчитывает прогресс целей ученика после записи факта.
// Все изменения целей пишутся одной пачкой; уведомления — после коммита, best-effort.
func (s *Service) Recompute(ctx context.Context, studentID string) (RecomputeResult, error) {
	ctx = ctxutil.WithOp(ctxutil.WithStudentID(ctx, studentID), "goals.recompute")
	now := s.clock.Now()
	today := clock.DayOf(now, s.loc)

	all, err := s.store.ListActiveGoals(ctx, studentID)
	if err != nil {
		return RecomputeResult{}, fmt.Errorf("list goals %s: %w", studentID, err)
	}
	goals := eligible(all, today)
	res := RecomputeResult{Evaluated: len(goals)}
	if len(goals) == 0 {
		return res, nil
	}

	facts, err := s.loadFacts(ctx, studentID, goals, today)
	if err != nil {
		return res, err
	}

	var (
		updates []models.Goal
		intents []notify.Intent
	)
	for _, g := range goals {
		v, ok := Value(g, facts, today, s.loc)
		if !ok {
			s.log.Warn("unknown goal type", zap.String("goal_id", g.ID), zap.String("type", string(g.Type)))
			continue
		}
		next, changed, in := Evaluate(g, v, now)
		if !changed {
			continue
		}
		updates = append(updates, next)
		intents = append(intents, in...)
		if next.Status == models.GoalCompleted {
			res.Completed++
		}
	}
	metrics.GoalRecomputes.Inc()
	if len(updates) == 0 {
		return res, nil
	}

	if err := s.store.UpdateGoals(ctx, studentID, updates); err != nil {
		return res, fmt.Errorf("update goals %s: %w", studentID, err)
	}
	res.Updated = len(updates)
	metrics.GoalsCompleted.Add(float64(res.Completed))

	s.emit(ctx, intents)
	res.Notifications = len(intents)
	return res, nil
}

type DailySummary struct {
	Students         int `json:"students"`
	GoalsExpired     int `json:"goalsExpired"`
	TemplatesExpired int `json:"templatesExpired"`
	InstancesSettled int `json:"instancesSettled"`
	InstancesCreated int `json:"instancesCreated"`
	Errors           int `json:"errors"`
}

func (d *DailySummary) add(o DailySummary) {
	d.GoalsExpired += o.GoalsExpired
	d.TemplatesExpired += o.TemplatesExpired
	d.InstancesSettled += o.InstancesSettled
	d.InstancesCreated += o.InstancesCreated
}

// RunDaily — суточный цикл: вчерашние экземпляры подводятся, истёкшие шаблоны
// закрываются, сегодняшние экземпляры создаются, обычные цели с прошедшим сроком истекают. Повторный запуск
// в тот же день ничего не дублирует. Ошибка по ученику не останавливает остальных.
func (s *Service) RunDaily(ctx context.Context) (DailySummary, error) {
	ctx = ctxutil.WithOp(ctx, "goals.daily")
	ids, err := s.store.ListStudentIDs(ctx)
	if err != nil {
		return DailySummary{}, fmt.Errorf("list students: %w", err)
	}
	now := s.clock.Now()
	today := clock.DayOf(now, s.loc)

	sum := DailySummary{Students: len(ids)}
	for _, id := range ids {
		if ctx.Err() != nil {
			return sum, ctx.Err()
		}
		part, err := s.runDailyFor(ctx, id, today, now)
		sum.add(part)
		if err != nil {
			sum.Errors++
			metrics.StudentErrors.WithLabelValues("goals-daily").Inc()
			s.log.Warn("daily goals failed", zap.String("student_id", id), zap.Error(err))
			observability.CaptureCtx(ctx, err, map[string]string{"student_id": id})
		}
	}
	metrics.DailyInstances.WithLabelValues("created").Add(float64(sum.InstancesCreated))
	metrics.DailyInstances.WithLabelValues("settled").Add(float64(sum.InstancesSettled))
	metrics.DailyInstances.WithLabelValues("template_expired").Add(float64(sum.TemplatesExpired))
	metrics.DailyInstances.WithLabelValues("goal_expired").Add(float64(sum.GoalsExpired))

	s.log.Info("daily goals done",
		zap.String("day", today.String()),
		zap.Int("students", sum.Students),
		zap.Int("goals_expired", sum.GoalsExpired),
		zap.Int("templates_expired", sum.TemplatesExpired),
		zap.Int("instances_settled", sum.InstancesSettled),
		zap.Int("instances_created", sum.InstancesCreated),
		zap.Int("errors", sum.Errors),
	)
	return sum, nil
}

func (s *Service) runDailyFor(ctx context.Context, studentID string, today clock.Day, now time.Time) (DailySummary, error) {
	ctx = ctxutil.WithStudentID(ctx, studentID)
	yesterday := today.AddDays(-1)

	var (
		sum     DailySummary
		updates []models.Goal
		intents []notify.Intent
	)
	// при ошибке пачка updates не пишется: в сводке остаются только уже созданные экземпляры
	fail := func(err error) (DailySummary, error) {
		return DailySummary{InstancesCreated: sum.InstancesCreated}, err
	}

	templates, err := s.store.ListTemplates(ctx, studentID)
	if err != nil {
		return fail(fmt.Errorf("list templates: %w", err))
	}
	for _, tpl := range templates {
		// вчерашний экземпляр подводится и у шаблона, который истекает сегодня
		prev, err := s.store.FindInstance(ctx, studentID, tpl.ID, yesterday)
		switch {
		case err == nil:
			if prev.Status == models.GoalActive {
				updates = append(updates, settleInstance(*prev, now))
				sum.InstancesSettled++
			}
		case !errors.Is(err, store.ErrNotFound):
			return fail(fmt.Errorf("find instance %s/%s: %w", tpl.ID, yesterday, err))
		}

		if today.After(tpl.EndDate) {
			tpl.Status = models.GoalExpired
			tpl.UpdatedAt = now
			updates = append(updates, tpl)
			intents = append(intents, expiredIntent(tpl))
			sum.TemplatesExpired++
			continue
		}
		if today.Before(tpl.StartDate) {
			continue
		}
		_, err = s.store.FindInstance(ctx, studentID, tpl.ID, today)
		switch {
		case err == nil:
		case errors.Is(err, store.ErrNotFound):
			created, err := s.store.CreateInstanceIfAbsent(ctx, newInstance(tpl, today, now))
			if err != nil {
				return fail(fmt.Errorf("create instance %s/%s: %w", tpl.ID, today, err))
			}
			if created {
				sum.InstancesCreated++
			}
		default:
			return fail(fmt.Errorf("find instance %s/%s: %w", tpl.ID, today, err))
		}
	}

	active, err := s.store.ListActiveGoals(ctx, studentID)
	if err != nil {
		return fail(fmt.Errorf("list goals: %w", err))
	}
	for _, g := range overdue(active, today) {
		g.Status = models.GoalExpired
		g.UpdatedAt = now
		updates = append(updates, g)
		intents = append(intents, expiredIntent(g))
		sum.GoalsExpired++
	}

	if len(updates) > 0 {
		if err := s.store.UpdateGoals(ctx, studentID, updates); err != nil {
			return fail(fmt.Errorf("update goals: %w", err))
		}
	}
	s.emit(ctx, intents)
	return sum, nil
}

// overdue — обычные цели (не шаблоны и не экземпляры), у которых срок прошёл, а цель не достигнута.
func overdue(goals []models.Goal, today clock.Day) []models.Goal {
	var out []models.Goal
	for _, g := range goals {
		if g.Status != models.GoalActive || g.IsTemplate() || g.IsInstance() {
			continue
		}
		if today.After(g.EndDate) && g.CurrentValue < g.TargetValue {
			out = append(out, g)
		}
	}
	return out
}

// settleInstance подводит итог дня: completed при достигнутой цели, иначе expired.
func settleInstance(g models.Goal, now time.Time) models.Goal {
	if g.CurrentValue >= g.TargetValue {
		done := now
		g.Status = models.GoalCompleted
		g.CompletionDate = &done
	} else {
		g.Status = models.GoalExpired
	}
	g.UpdatedAt = now
	return g
}
