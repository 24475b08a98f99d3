package ranking

import (
	"context"
	"errors"
	"fmt"
	"time"

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

// SettlementHour — час закрытия недели (воскресенье, локальное время).
const SettlementHour = 12

var ErrInvalidTier = errors.New("tier out of range")

type Store interface {
	ListStudentIDs(ctx context.Context) ([]string, error)

	GetRankingEntry(ctx context.Context, studentID string) (*models.RankingEntry, error)
	CreateRankingEntryIfAbsent(ctx context.Context, e models.RankingEntry) (models.RankingEntry, bool, error)
	UpdateWeeklyScore(ctx context.Context, studentID string, score float64, at time.Time) error
	ListRankingEntries(ctx context.Context) ([]models.RankingEntry, error)
	ListRankingEntriesByTier(ctx context.Context, tier int) ([]models.RankingEntry, error)
	ApplySettlement(ctx context.Context, run models.SettlementRun, updates []models.RankingEntry) error
	LastSettlement(ctx context.Context) (*models.SettlementRun, error)
	AppendRankingHistory(ctx context.Context, rec models.RankingHistoryRecord) error
	ListRankingHistory(ctx context.Context, limit int) ([]models.RankingHistoryRecord, error)

	ListStudies(ctx context.Context, studentID string, from, to time.Time) ([]models.StudyFact, error)
	ListExams(ctx context.Context, studentID string, from, to time.Time) ([]models.ExamFact, error)
	ListEssays(ctx context.Context, studentID string, from, to time.Time) ([]models.EssayFact, error)
	ListJournalEntries(ctx context.Context, studentID string, from, to time.Time) ([]models.JournalEntry, error)
}

type Notifier interface {
	Emit(ctx context.Context, intents ...notify.Intent) int
}

type Service struct {
	store    Store
	clock    clock.Clock
	loc      *time.Location
	notifier Notifier
	log      *zap.Logger
}

func NewService(st Store, c clock.Clock, loc *time.Location, n Notifier, log *zap.Logger) *Service {
	return &Service{store: st, clock: c, loc: loc, notifier: n, log: logging.OrNop(log)}
}

// GetOrInitEntry — запись ученика; при отсутствии создаётся (уровень 1, 0 очков).
// Конкурентные вызовы сходятся к одной записи за счёт create-if-absent в хранилище.
func (s *Service) GetOrInitEntry(ctx context.Context, studentID string) (models.RankingEntry, error) {
	e, err := s.store.GetRankingEntry(ctx, studentID)
	if err == nil {
		e.Tier = models.ClampTier(e.Tier)
		return *e, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return models.RankingEntry{}, fmt.Errorf("get ranking entry %s: %w", studentID, err)
	}
	now := s.clock.Now()
	created, _, err := s.store.CreateRankingEntryIfAbsent(ctx, models.RankingEntry{
		StudentID:     studentID,
		Tier:          models.MinTier,
		LastUpdatedAt: now,
		CreatedAt:     now,
	})
	if err != nil {
		return models.RankingEntry{}, fmt.Errorf("create ranking entry %s: %w", studentID, err)
	}
	return created, nil
}

// PeriodStart — начало открытого недельного периода: последнее закрытие,
// а если закрытий ещё не было — последнее воскресенье SettlementHour:00.
func (s *Service) PeriodStart(ctx context.Context) (time.Time, error) {
	last, err := s.store.LastSettlement(ctx)
	switch {
	case err == nil:
		return last.SettledAt, nil
	case errors.Is(err, store.ErrNotFound):
		return clock.WeekStart(s.clock.Now(), s.loc, SettlementHour), nil
	default:
		return time.Time{}, fmt.Errorf("last settlement: %w", err)
	}
}

func (s *Service) loadFacts(ctx context.Context, studentID string, from, to time.Time) (Facts, error) {
	var (
		f   Facts
		err error
	)
	if f.Studies, err = s.store.ListStudies(ctx, studentID, from, to); err != nil {
		return f, fmt.Errorf("list studies: %w", err)
	}
	if f.Exams, err = s.store.ListExams(ctx, studentID, from, to); err != nil {
		return f, fmt.Errorf("list exams: %w", err)
	}
	if f.Essays, err = s.store.ListEssays(ctx, studentID, from, to); err != nil {
		return f, fmt.Errorf("list essays: %w", err)
	}
	if f.Journal, err = s.store.ListJournalEntries(ctx, studentID, from, to); err != nil {
		return f, fmt.Errorf("list journal: %w", err)
	}
	return f, nil
}

type LiveScore struct {
	Entry       models.RankingEntry `json:"entry"`
	Breakdown   Breakdown           `json:"breakdown"`
	PeriodStart time.Time           `json:"periodStart"`
	Changed     bool                `json:"changed"`
}

// RefreshLiveScore пересчитывает недельные очки и пишет их, только если они изменились.
// Уровень не меняется.
func (s *Service) RefreshLiveScore(ctx context.Context, studentID string) (LiveScore, error) {
	ctx = ctxutil.WithOp(ctxutil.WithStudentID(ctx, studentID), "ranking.refresh")

	entry, err := s.GetOrInitEntry(ctx, studentID)
	if err != nil {
		return LiveScore{}, err
	}
	from, err := s.PeriodStart(ctx)
	if err != nil {
		return LiveScore{}, err
	}
	now := s.clock.Now()
	facts, err := s.loadFacts(ctx, studentID, from, now)
	if err != nil {
		return LiveScore{}, err
	}
	b := Score(facts, from, now, s.loc)
	res := LiveScore{Entry: entry, Breakdown: b, PeriodStart: from}
	if b.Total == entry.WeeklyScore {
		return res, nil
	}
	if err := s.store.UpdateWeeklyScore(ctx, studentID, b.Total, now); err != nil {
		return LiveScore{}, fmt.Errorf("update weekly score %s: %w", studentID, err)
	}
	metrics.LiveScoreRefreshes.Inc()
	res.Entry.WeeklyScore = b.Total
	res.Entry.LastUpdatedAt = now
	res.Changed = true
	return res, nil
}

type RefreshSummary struct {
	Students int `json:"students"`
	Updated  int `json:"updated"`
	Errors   int `json:"errors"`
}

// RefreshAll пересчитывает очки всех учеников; ошибка по одному ученику не останавливает остальных.
func (s *Service) RefreshAll(ctx context.Context) (RefreshSummary, error) {
	ids, err := s.store.ListStudentIDs(ctx)
	if err != nil {
		return RefreshSummary{}, fmt.Errorf("list students: %w", err)
	}
	sum := RefreshSummary{Students: len(ids)}
	for _, id := range ids {
		if ctx.Err() != nil {
			return sum, ctx.Err()
		}
		res, err := s.RefreshLiveScore(ctx, id)
		if err != nil {
			sum.Errors++
			metrics.StudentErrors.WithLabelValues("ranking-refresh").Inc()
			s.log.Warn("live score refresh failed", zap.String("student_id", id), zap.Error(err))
			observability.CaptureCtx(ctx, err, map[string]string{"student_id": id})
			continue
		}
		if res.Changed {
			sum.Updated++
		}
	}
	return sum, nil
}

// TierStandings — все записи уровня по местам.
func (s *Service) TierStandings(ctx context.Context, tier int) ([]Standing, error) {
	if tier < models.MinTier || tier > models.MaxTier {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTier, tier)
	}
	entries, err := s.store.ListRankingEntriesByTier(ctx, tier)
	if err != nil {
		return nil, fmt.Errorf("list tier %d: %w", tier, err)
	}
	return Standings(tier, entries), nil
}

type Preview struct {
	LiveScore
	Standing Standing `json:"standing"`
}

// Preview — живые очки ученика и его место/зона в текущем уровне.
func (s *Service) Preview(ctx context.Context, studentID string) (Preview, error) {
	live, err := s.RefreshLiveScore(ctx, studentID)
	if err != nil {
		return Preview{}, err
	}
	standings, err := s.TierStandings(ctx, live.Entry.Tier)
	if err != nil {
		return Preview{}, err
	}
	p := Preview{LiveScore: live}
	for _, st := range standings {
		if st.Entry.StudentID == studentID {
			p.Standing = st
			break
		}
	}
	return p, nil
}

// Settle — закрытие недели. Все обновления записей коммитятся одной пачкой вместе
// с отметкой периода; повторное закрытие того же периода вернёт store.ErrAlreadySettled.
func (s *Service) Settle(ctx context.Context) (SettlementSummary, error) {
	ctx = ctxutil.WithOp(ctx, "ranking.settle")
	now := s.clock.Now()
	key := PeriodKey(now, s.loc)

	entries, err := s.store.ListRankingEntries(ctx)
	if err != nil {
		return SettlementSummary{}, fmt.Errorf("list ranking entries: %w", err)
	}
	plan := PlanSettlement(entries, now, key)

	run := models.SettlementRun{PeriodKey: key, SettledAt: now}
	if err := s.store.ApplySettlement(ctx, run, plan.Updates); err != nil {
		return SettlementSummary{}, fmt.Errorf("apply settlement %s: %w", key, err)
	}

	sum := plan.Summary
	metrics.SettlementStudents.Set(float64(sum.TotalStudents))
	metrics.SettlementTransitions.WithLabelValues(string(Promoted)).Add(float64(sum.Promotions))
	metrics.SettlementTransitions.WithLabelValues(string(Relegated)).Add(float64(sum.Relegations))
	metrics.SettlementTransitions.WithLabelValues(string(Held)).Add(float64(sum.Holds))

	// журнал — только аудит: при ошибке записи закрытие всё равно считается выполненным
	rec := models.RankingHistoryRecord{
		ID:             uuid.NewString(),
		PeriodKey:      key,
		SettledAt:      now,
		TotalStudents:  sum.TotalStudents,
		Promotions:     sum.Promotions,
		Relegations:    sum.Relegations,
		Holds:          sum.Holds,
		TierPopulation: sum.TierPopulation,
	}
	if err := s.store.AppendRankingHistory(ctx, rec); err != nil {
		s.log.Error("ranking history append failed", zap.String("period", key), zap.Error(err))
		observability.CaptureCtx(ctx, err, map[string]string{"period": key})
	}

	if s.notifier != nil {
		s.notifier.Emit(ctx, transitionIntents(plan.Transitions)...)
	}

	s.log.Info("weekly settlement done",
		zap.String("period", key),
		zap.Int("students", sum.TotalStudents),
		zap.Int("promotions", sum.Promotions),
		zap.Int("relegations", sum.Relegations),
		zap.Int("holds", sum.Holds),
	)
	return sum, nil
}

func transitionIntents(trs []Transition) []notify.Intent {
	var out []notify.Intent
	for _, tr := range trs {
		switch tr.Outcome {
		case Promoted:
			out = append(out, notify.Intent{
				StudentID: tr.StudentID,
				Kind:      models.NotifyRankingPromoted,
				Title:     "Você subiu de liga!",
				Message:   fmt.Sprintf("Parabéns! Você terminou a semana em %dº e subiu para a liga %d.", tr.Position, tr.To),
			})
		case Relegated:
			out = append(out, notify.Intent{
				StudentID: tr.StudentID,
				Kind:      models.NotifyRankingRelegated,
				Title:     "Você caiu de liga",
				Message:   fmt.Sprintf("Você terminou a semana em %dº e desceu para a liga %d. Bora recuperar!", tr.Position, tr.To),
			})
		}
	}
	return out
}

type BackfillSummary struct {
	TotalStudents int `json:"totalStudents"`
	Created       int `json:"created"`
	Existing      int `json:"existing"`
	Errors        int `json:"errors"`
}

// Backfill — разовое создание записей рейтинга для всех учеников, у кого их нет.
func (s *Service) Backfill(ctx context.Context) (BackfillSummary, error) {
	ids, err := s.store.ListStudentIDs(ctx)
	if err != nil {
		return BackfillSummary{}, fmt.Errorf("list students: %w", err)
	}
	sum := BackfillSummary{TotalStudents: len(ids)}
	now := s.clock.Now()
	for _, id := range ids {
		_, created, err := s.store.CreateRankingEntryIfAbsent(ctx, models.RankingEntry{
			StudentID:     id,
			Tier:          models.MinTier,
			LastUpdatedAt: now,
			CreatedAt:     now,
		})
		switch {
		case err != nil:
			sum.Errors++
			metrics.StudentErrors.WithLabelValues("ranking-backfill").Inc()
			s.log.Warn("backfill failed", zap.String("student_id", id), zap.Error(err))
		case created:
			sum.Created++
		default:
			sum.Existing++
		}
	}
	s.log.Info("ranking backfill done",
		zap.Int("students", sum.TotalStudents), zap.Int("created", sum.Created),
		zap.Int("existing", sum.Existing), zap.Int("errors", sum.Errors))
	return sum, nil
}

// History — последние записи журнала закрытий.
func (s *Service) History(ctx context.Context, limit int) ([]models.RankingHistoryRecord, error) {
	return s.store.ListRankingHistory(ctx, limit)
}

// AllStandings — места по всем уровням (для выгрузки).
func (s *Service) AllStandings(ctx context.Context) (map[int][]Standing, error) {
	entries, err := s.store.ListRankingEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("list ranking entries: %w", err)
	}
	byTier := make(map[int][]models.RankingEntry, models.MaxTier)
	for _, e := range entries {
		t := models.ClampTier(e.Tier)
		byTier[t] = append(byTier[t], e)
	}
	out := make(map[int][]Standing, models.MaxTier)
	for tier := models.MinTier; tier <= models.MaxTier; tier++ {
		out[tier] = Standings(tier, byTier[tier])
	}
	return out, nil
}
