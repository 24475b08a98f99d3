package ranking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Spok95/mentoria-engine/internal/clock"
	"github.com/Spok95/mentoria-engine/internal/models"
	"github.com/Spok95/mentoria-engine/internal/notify"
	"github.com/Spok95/mentoria-engine/internal/store"
	"github.com/Spok95/mentoria-engine/internal/store/memstore"
)

func newTestService(t *testing.T, now time.Time) (*Service, *memstore.Store, *clock.Fixed) {
	t.Helper()
	ms := memstore.New()
	clk := clock.NewFixed(now)
	em := notify.NewEmitter(ms, clk, nil)
	return NewService(ms, clk, time.UTC, em, nil), ms, clk
}

func TestGetOrInitEntry_ConcurrentCallersConverge(t *testing.T) {
	svc, ms, _ := newTestService(t, time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e, err := svc.GetOrInitEntry(ctx, "st-1")
			if err != nil {
				t.Error(err)
				return
			}
			if e.Tier != 1 || e.WeeklyScore != 0 {
				t.Errorf("новая запись должна быть tier=1 score=0: %#v", e)
			}
		}()
	}
	wg.Wait()

	all, _ := ms.ListRankingEntries(ctx)
	if len(all) != 1 {
		t.Fatalf("ожидали одну запись, получили %d", len(all))
	}
}

func TestRefreshLiveScore(t *testing.T) {
	now := time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC) // среда
	svc, ms, _ := newTestService(t, now)
	ctx := context.Background()

	_ = ms.SaveStudy(ctx, models.StudyFact{ID: "a", StudentID: "st", StudiedAt: now.Add(-24 * time.Hour), Minutes: 60, Questions: 10, Correct: 8})
	_ = ms.SaveStudy(ctx, models.StudyFact{ID: "old", StudentID: "st", StudiedAt: now.AddDate(0, 0, -5), Minutes: 600}) // до воскресенья 12:00
	_ = ms.SaveJournalEntry(ctx, models.JournalEntry{ID: "j", StudentID: "st", WrittenAt: now.Add(-time.Hour)})

	res, err := svc.RefreshLiveScore(ctx, "st")
	if err != nil {
		t.Fatal(err)
	}
	// 10 (1 час) + 18 (8 верных, 2 неверных) + 50 (дневник)
	if res.Breakdown.Total != 78 || !res.Changed {
		t.Fatalf("ожидали 78 и запись, получили %#v", res)
	}
	e, _ := ms.GetRankingEntry(ctx, "st")
	if e.WeeklyScore != 78 || e.Tier != 1 {
		t.Fatalf("запись в хранилище: %#v", e)
	}

	// без новых фактов — без записи
	res, err = svc.RefreshLiveScore(ctx, "st")
	if err != nil || res.Changed {
		t.Fatalf("повторный пересчёт не должен писать: %#v %v", res, err)
	}
}

func TestRefreshLiveScore_DoesNotTouchTier(t *testing.T) {
	now := time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC)
	svc, ms, _ := newTestService(t, now)
	ctx := context.Background()
	_, _, _ = ms.CreateRankingEntryIfAbsent(ctx, models.RankingEntry{StudentID: "st", Tier: 4, WeeklyScore: 999})

	res, err := svc.RefreshLiveScore(ctx, "st")
	if err != nil {
		t.Fatal(err)
	}
	if res.Entry.Tier != 4 || res.Entry.WeeklyScore != 0 {
		t.Fatalf("ожидали tier 4 и 0 очков: %#v", res.Entry)
	}
}

func seedTier(t *testing.T, ms *memstore.Store, tier, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("t%d-s%02d", tier, i+1)
		_ = ms.UpsertStudent(context.Background(), models.Student{ID: id})
		_, _, err := ms.CreateRankingEntryIfAbsent(context.Background(), models.RankingEntry{
			StudentID: id, Tier: tier, WeeklyScore: float64(1000 - i*10),
		})
		if err != nil {
			t.Fatal(err)
		}
	}
}

func TestSettle_Scenario(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC) // воскресенье
	svc, ms, _ := newTestService(t, now)
	ctx := context.Background()
	seedTier(t, ms, 3, 12)

	sum, err := svc.Settle(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if sum.TotalStudents != 12 || sum.Promotions != 5 || sum.Relegations != 5 || sum.Holds != 2 {
		t.Fatalf("сводка: %#v", sum)
	}
	if sum.PeriodKey != "2026-10-18" {
		t.Fatalf("ключ периода: %s", sum.PeriodKey)
	}

	check := func(id string, tier int) {
		t.Helper()
		e, err := ms.GetRankingEntry(ctx, id)
		if err != nil {
			t.Fatal(err)
		}
		if e.Tier != tier || e.WeeklyScore != 0 || e.PreviousTier == nil || *e.PreviousTier != 3 {
			t.Fatalf("%s: ожидали tier %d, получили %#v", id, tier, e)
		}
	}
	check("t3-s01", 4)
	check("t3-s06", 3)
	check("t3-s12", 2)

	h := ms.History()
	if len(h) != 1 || h[0].Promotions != 5 || h[0].TierPopulation[3] != 12 {
		t.Fatalf("журнал: %#v", h)
	}

	kinds := map[models.NotificationKind]int{}
	for i := 1; i <= 12; i++ {
		for _, n := range ms.Notifications(fmt.Sprintf("t3-s%02d", i)) {
			kinds[n.Kind]++
		}
	}
	if kinds[models.NotifyRankingPromoted] != 5 || kinds[models.NotifyRankingRelegated] != 5 {
		t.Fatalf("уведомления: %#v", kinds)
	}

	last, err := ms.LastSettlement(ctx)
	if err != nil || !last.SettledAt.Equal(now) {
		t.Fatalf("отметка периода: %#v %v", last, err)
	}
	start, err := svc.PeriodStart(ctx)
	if err != nil || !start.Equal(now) {
		t.Fatalf("новый период должен начинаться с закрытия: %v %v", start, err)
	}
}

func TestSettle_SamePeriodTwiceIsRejected(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	svc, ms, clk := newTestService(t, now)
	ctx := context.Background()
	seedTier(t, ms, 2, 8)

	if _, err := svc.Settle(ctx); err != nil {
		t.Fatal(err)
	}
	before, _ := ms.ListRankingEntries(ctx)

	clk.Advance(3 * time.Hour) // ручной запуск в тот же день
	_, err := svc.Settle(ctx)
	if !errors.Is(err, store.ErrAlreadySettled) {
		t.Fatalf("ожидали ErrAlreadySettled, получили %v", err)
	}
	after, _ := ms.ListRankingEntries(ctx)
	for i := range before {
		if before[i].Tier != after[i].Tier {
			t.Fatalf("повторное закрытие изменило уровни: %#v -> %#v", before[i], after[i])
		}
	}
	if len(ms.History()) != 1 {
		t.Fatalf("журнал не должен пополниться: %d", len(ms.History()))
	}

	clk.Advance(7 * 24 * time.Hour) // следующая неделя
	if _, err := svc.Settle(ctx); err != nil {
		t.Fatalf("следующая неделя должна закрыться: %v", err)
	}
}

func TestSettle_BatchFailureIsFatal(t *testing.T) {
	svc, ms, _ := newTestService(t, time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC))
	seedTier(t, ms, 2, 3)
	ms.FailOn("ApplySettlement", errors.New("commit failed"))

	if _, err := svc.Settle(context.Background()); err == nil {
		t.Fatal("ошибка пачки должна пробрасываться")
	}
	e, _ := ms.GetRankingEntry(context.Background(), "t2-s01")
	if e.Tier != 2 || e.WeeklyScore == 0 {
		t.Fatalf("при ошибке ничего не должно меняться: %#v", e)
	}
	if len(ms.History()) != 0 {
		t.Fatal("журнал не пишется без закрытия")
	}
}

func TestSettle_HistoryAndNotificationFailuresAreNotFatal(t *testing.T) {
	svc, ms, _ := newTestService(t, time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC))
	seedTier(t, ms, 2, 3)
	ms.FailOn("AppendRankingHistory", errors.New("audit down"))
	ms.FailOn("CreateNotification", errors.New("notifications down"))

	sum, err := svc.Settle(context.Background())
	if err != nil {
		t.Fatalf("ошибки журнала и уведомлений не должны валить закрытие: %v", err)
	}
	if sum.Promotions != 3 {
		t.Fatalf("сводка: %#v", sum)
	}
	e, _ := ms.GetRankingEntry(context.Background(), "t2-s03")
	if e.Tier != 3 {
		t.Fatalf("записи должны быть закоммичены: %#v", e)
	}
}

func TestBackfill(t *testing.T) {
	svc, ms, _ := newTestService(t, time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC))
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		_ = ms.UpsertStudent(ctx, models.Student{ID: id})
	}
	_, _, _ = ms.CreateRankingEntryIfAbsent(ctx, models.RankingEntry{StudentID: "b", Tier: 5})

	sum, err := svc.Backfill(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if sum.TotalStudents != 3 || sum.Created != 2 || sum.Existing != 1 || sum.Errors != 0 {
		t.Fatalf("сводка: %#v", sum)
	}
	b, _ := ms.GetRankingEntry(ctx, "b")
	if b.Tier != 5 {
		t.Fatalf("существующая запись не должна меняться: %#v", b)
	}

	again, _ := svc.Backfill(ctx)
	if again.Created != 0 || again.Existing != 3 {
		t.Fatalf("повторный backfill: %#v", again)
	}
}

func TestRefreshAll_IsolatesStudents(t *testing.T) {
	now := time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC)
	svc, ms, _ := newTestService(t, now)
	ctx := context.Background()
	for _, id := range []string{"a", "b"} {
		_ = ms.UpsertStudent(ctx, models.Student{ID: id})
		_ = ms.SaveExam(ctx, models.ExamFact{ID: "e-" + id, StudentID: id, TakenAt: now.Add(-time.Hour), Correct: 10, Total: 20})
	}
	sum, err := svc.RefreshAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Students != 2 || sum.Updated != 2 || sum.Errors != 0 {
		t.Fatalf("сводка: %#v", sum)
	}

	ms.FailOn("ListExams", errors.New("boom"))
	sum, err = svc.RefreshAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Errors != 2 {
		t.Fatalf("ожидали 2 ошибки по ученикам, получили %#v", sum)
	}
}

func TestTierStandingsAndPreview(t *testing.T) {
	now := time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC)
	svc, ms, _ := newTestService(t, now)
	ctx := context.Background()
	seedTier(t, ms, 2, 11)

	if _, err := svc.TierStandings(ctx, 7); !errors.Is(err, ErrInvalidTier) {
		t.Fatalf("ожидали ErrInvalidTier, получили %v", err)
	}
	st, err := svc.TierStandings(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(st) != 11 || st[0].Entry.StudentID != "t2-s01" || st[0].Zone != ZonePromotion || st[10].Zone != ZoneRelegation || st[5].Zone != ZoneHold {
		t.Fatalf("места: %#v", st)
	}

	// у t2-s01 нет фактов: живые очки обнулятся, и он окажется последним
	p, err := svc.Preview(ctx, "t2-s01")
	if err != nil {
		t.Fatal(err)
	}
	if p.Standing.Position != 11 || p.Standing.Zone != ZoneRelegation {
		t.Fatalf("превью: %#v", p.Standing)
	}
}
