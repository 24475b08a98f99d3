package ranking

import (
	"fmt"
	"testing"
	"time"

	"github.com/Spok95/mentoria-engine/internal/models"
)

func tierOf(tier, n int) []models.RankingEntry {
	out := make([]models.RankingEntry, n)
	for i := 0; i < n; i++ {
		out[i] = models.RankingEntry{
			StudentID:   fmt.Sprintf("t%d-s%02d", tier, i+1),
			Tier:        tier,
			WeeklyScore: float64(1000 - i*10), // s01 — лучший
		}
	}
	return out
}

func countOutcomes(trs []Transition) (p, r, h int) {
	for _, tr := range trs {
		switch tr.Outcome {
		case Promoted:
			p++
		case Relegated:
			r++
		default:
			h++
		}
	}
	return
}

func TestClassifyZone(t *testing.T) {
	cases := []struct {
		tier, pos, size int
		want            Zone
	}{
		{3, 1, 12, ZonePromotion},
		{3, 5, 12, ZonePromotion},
		{3, 6, 12, ZoneHold},
		{3, 7, 12, ZoneHold},
		{3, 8, 12, ZoneRelegation},
		{3, 12, 12, ZoneRelegation},
		{3, 4, 4, ZonePromotion}, // маленький уровень целиком вверх
		{1, 12, 12, ZoneHold},    // ниже первого некуда
		{6, 1, 12, ZoneHold},     // выше шестого некуда
		{6, 12, 12, ZoneRelegation},
		{6, 1, 3, ZoneRelegation}, // маленький верхний уровень: повышения нет
		{2, 7, 7, ZoneRelegation}, // пересечение зон: 6–7 вниз
		{2, 5, 7, ZonePromotion},
	}
	for _, tc := range cases {
		if got := ClassifyZone(tc.tier, tc.pos, tc.size); got != tc.want {
			t.Errorf("ClassifyZone(%d,%d,%d)=%s, ожидали %s", tc.tier, tc.pos, tc.size, got, tc.want)
		}
	}
}

func TestPlanSettlement_Tier3Of12(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	plan := PlanSettlement(tierOf(3, 12), now, "2026-10-18")

	byID := map[string]Transition{}
	for _, tr := range plan.Transitions {
		byID[tr.StudentID] = tr
	}
	if tr := byID["t3-s01"]; tr.To != 4 || tr.Outcome != Promoted {
		t.Fatalf("1-е место должно подняться в 4: %#v", tr)
	}
	if tr := byID["t3-s12"]; tr.To != 2 || tr.Outcome != Relegated {
		t.Fatalf("12-е место должно опуститься во 2: %#v", tr)
	}
	if tr := byID["t3-s06"]; tr.To != 3 || tr.Outcome != Held {
		t.Fatalf("6-е место должно остаться в 3: %#v", tr)
	}
	for _, u := range plan.Updates {
		if u.WeeklyScore != 0 {
			t.Fatalf("очки не обнулены: %#v", u)
		}
		if u.PreviousTier == nil || *u.PreviousTier != 3 {
			t.Fatalf("previousTier не проставлен: %#v", u)
		}
		if !u.LastUpdatedAt.Equal(now) {
			t.Fatalf("lastUpdatedAt не проставлен: %#v", u)
		}
	}
	s := plan.Summary
	if s.Promotions != 5 || s.Relegations != 5 || s.Holds != 2 || s.TotalStudents != 12 || s.TierPopulation[3] != 12 {
		t.Fatalf("сводка: %#v", s)
	}
}

func TestPlanSettlement_Properties(t *testing.T) {
	now := time.Now()
	for tier := models.MinTier; tier <= models.MaxTier; tier++ {
		for n := 1; n <= 14; n++ {
			plan := PlanSettlement(tierOf(tier, n), now, "k")
			p, r, _ := countOutcomes(plan.Transitions)

			if tier == models.MinTier && r != 0 {
				t.Fatalf("tier 1, n=%d: понижений быть не должно, получили %d", n, r)
			}
			if tier == models.MaxTier && p != 0 {
				t.Fatalf("tier 6, n=%d: повышений быть не должно, получили %d", n, p)
			}
			if n <= ZoneSize && tier < models.MaxTier && p != n {
				t.Fatalf("tier %d, n=%d: маленький уровень должен подняться целиком, подняли %d", tier, n, p)
			}
			if n > ZoneSize && tier < models.MaxTier && p != ZoneSize {
				t.Fatalf("tier %d, n=%d: ожидали %d повышений, получили %d", tier, n, ZoneSize, p)
			}
			if n >= 2*ZoneSize && tier > models.MinTier && r != ZoneSize {
				t.Fatalf("tier %d, n=%d: ожидали %d понижений, получили %d", tier, n, ZoneSize, r)
			}
			for _, tr := range plan.Transitions {
				if tr.To < models.MinTier || tr.To > models.MaxTier {
					t.Fatalf("уровень вне диапазона: %#v", tr)
				}
			}
		}
	}
}

func TestPlanSettlement_TiesAreDeterministic(t *testing.T) {
	entries := make([]models.RankingEntry, 7)
	for i := range entries {
		entries[i] = models.RankingEntry{StudentID: fmt.Sprintf("s%d", 7-i), Tier: 2, WeeklyScore: 50}
	}
	a := PlanSettlement(entries, time.Now(), "k")
	b := PlanSettlement(entries, time.Now(), "k")
	for i := range a.Transitions {
		if a.Transitions[i] != b.Transitions[i] {
			t.Fatalf("порядок нестабилен: %#v vs %#v", a.Transitions[i], b.Transitions[i])
		}
	}
	if a.Transitions[0].StudentID != "s1" || a.Transitions[0].Outcome != Promoted {
		t.Fatalf("при равенстве выигрывает меньший id: %#v", a.Transitions[0])
	}
	if last := a.Transitions[6]; last.StudentID != "s7" || last.Outcome != Relegated {
		t.Fatalf("последний по id должен опуститься: %#v", last)
	}
}

func TestPlanSettlement_ClampsBadTier(t *testing.T) {
	plan := PlanSettlement([]models.RankingEntry{{StudentID: "x", Tier: 9, WeeklyScore: 1}}, time.Now(), "k")
	if plan.Summary.TierPopulation[6] != 1 || plan.Updates[0].Tier < 1 || plan.Updates[0].Tier > 6 {
		t.Fatalf("уровень 9 должен читаться как 6: %#v", plan)
	}
}
