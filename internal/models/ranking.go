package models

import (
	"database/sql/driver"
	"time"
)

const (
	MinTier = 1
	MaxTier = 6
)

// ClampTier держит уровень в [MinTier, MaxTier].
func ClampTier(t int) int {
	if t < MinTier {
		return MinTier
	}
	if t > MaxTier {
		return MaxTier
	}
	return t
}

type RankingEntry struct {
	StudentID     string    `db:"student_id" json:"studentId"`
	Tier          int       `db:"tier" json:"tier"`
	WeeklyScore   float64   `db:"weekly_score" json:"weeklyScore"`
	PreviousTier  *int      `db:"previous_tier" json:"previousTier,omitempty"`
	LastUpdatedAt time.Time `db:"last_updated_at" json:"lastUpdatedAt"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
}

// SettlementRun — отметка о закрытой неделе; period_key уникален.
type SettlementRun struct {
	PeriodKey string    `db:"period_key" json:"periodKey"`
	SettledAt time.Time `db:"settled_at" json:"settledAt"`
}

// TierCounts — численность по уровням (ключ — номер уровня).
type TierCounts map[int]int

func (c TierCounts) Value() (driver.Value, error) { return jsonValue(c) }
func (c *TierCounts) Scan(src any) error          { return jsonScan(src, c) }

type RankingHistoryRecord struct {
	ID             string     `db:"id" json:"id"`
	PeriodKey      string     `db:"period_key" json:"periodKey"`
	SettledAt      time.Time  `db:"settled_at" json:"settledAt"`
	TotalStudents  int        `db:"total_students" json:"totalStudents"`
	Promotions     int        `db:"promotions" json:"promotions"`
	Relegations    int        `db:"relegations" json:"relegations"`
	Holds          int        `db:"holds" json:"holds"`
	TierPopulation TierCounts `db:"tier_population" json:"tierPopulation"`
}
