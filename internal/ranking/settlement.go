package ranking

import (
	"time"

	"github.com/Spok95/mentoria-engine/internal/clock"
	"github.com/Spok95/mentoria-engine/internal/models"
)

type Outcome string

const (
	Promoted  Outcome = "promoted"
	Relegated Outcome = "relegated"
	Held      Outcome = "held"
)

type Transition struct {
	StudentID string
	From      int
	To        int
	Position  int
	TierSize  int
	Score     float64
	Outcome   Outcome
}

type SettlementSummary struct {
	PeriodKey      string            `json:"periodKey"`
	SettledAt      time.Time         `json:"settledAt"`
	TotalStudents  int               `json:"totalStudents"`
	Promotions     int               `json:"promotions"`
	Relegations    int               `json:"relegations"`
	Holds          int               `json:"holds"`
	TierPopulation models.TierCounts `json:"tierPopulation"`
}

type SettlementPlan struct {
	Transitions []Transition
	Updates     []models.RankingEntry
	Summary     SettlementSummary
}

// PeriodKey — дата воскресенья, открывающего неделю, в которую попадает now.
func PeriodKey(now time.Time, loc *time.Location) string {
	return clock.DayOf(clock.WeekStart(now, loc, 0), loc).String()
}

// PlanSettlement — чистый расчёт закрытия недели: новые уровни, обнулённые очки, сводка.
func PlanSettlement(entries []models.RankingEntry, now time.Time, periodKey string) SettlementPlan {
	byTier := make(map[int][]models.RankingEntry, models.MaxTier)
	for _, e := range entries {
		e.Tier = models.ClampTier(e.Tier)
		byTier[e.Tier] = append(byTier[e.Tier], e)
	}

	plan := SettlementPlan{
		Summary: SettlementSummary{
			PeriodKey:      periodKey,
			SettledAt:      now,
			TotalStudents:  len(entries),
			TierPopulation: make(models.TierCounts, models.MaxTier),
		},
		Transitions: make([]Transition, 0, len(entries)),
		Updates:     make([]models.RankingEntry, 0, len(entries)),
	}

	for tier := models.MinTier; tier <= models.MaxTier; tier++ {
		members := byTier[tier]
		plan.Summary.TierPopulation[tier] = len(members)
		for _, st := range Standings(tier, members) {
			tr := Transition{
				StudentID: st.Entry.StudentID,
				From:      tier,
				To:        tier,
				Position:  st.Position,
				TierSize:  st.TierSize,
				Score:     st.Entry.WeeklyScore,
				Outcome:   Held,
			}
			switch st.Zone {
			case ZonePromotion:
				tr.To, tr.Outcome = tier+1, Promoted
				plan.Summary.Promotions++
			case ZoneRelegation:
				tr.To, tr.Outcome = tier-1, Relegated
				plan.Summary.Relegations++
			default:
				plan.Summary.Holds++
			}
			plan.Transitions = append(plan.Transitions, tr)

			prev := tier
			upd := st.Entry
			upd.Tier = tr.To
			upd.PreviousTier = &prev
			upd.WeeklyScore = 0
			upd.LastUpdatedAt = now
			plan.Updates = append(plan.Updates, upd)
		}
	}
	return plan
}
