package models

import (
	"time"

	"github.com/Spok95/mentoria-engine/internal/clock"
)

type GoalType string

const (
	GoalHours     GoalType = "hours"
	GoalQuestions GoalType = "questions"
	GoalMockExams GoalType = "mockExams"
	GoalTopics    GoalType = "topics"
	GoalStreak    GoalType = "streak"
	GoalExamScore GoalType = "examScore"
)

func (t GoalType) Valid() bool {
	switch t {
	case GoalHours, GoalQuestions, GoalMockExams, GoalTopics, GoalStreak, GoalExamScore:
		return true
	}
	return false
}

type GoalStatus string

const (
	GoalActive    GoalStatus = "active"
	GoalCompleted GoalStatus = "completed"
	GoalExpired   GoalStatus = "expired"
	GoalCancelled GoalStatus = "cancelled"
)

type Goal struct {
	ID               string     `db:"id" json:"id"`
	StudentID        string     `db:"student_id" json:"studentId"`
	Type             GoalType   `db:"type" json:"type"`
	Title            string     `db:"title" json:"title"`
	TargetValue      float64    `db:"target_value" json:"targetValue"`
	CurrentValue     float64    `db:"current_value" json:"currentValue"`
	Unit             string     `db:"unit" json:"unit"`
	Status           GoalStatus `db:"status" json:"status"`
	StartDate        clock.Day  `db:"start_date" json:"startDate"`
	EndDate          clock.Day  `db:"end_date" json:"endDate"`
	CompletionDate   *time.Time `db:"completion_date" json:"completionDate,omitempty"`
	Subject          *string    `db:"subject" json:"subject,omitempty"`
	Incidence        *string    `db:"incidence" json:"incidence,omitempty"`
	IsDailyRecurring bool       `db:"is_daily_recurring" json:"isDailyRecurring"`
	ParentGoalID     *string    `db:"parent_goal_id" json:"parentGoalId,omitempty"`
	ReferenceDate    *clock.Day `db:"reference_date" json:"referenceDate,omitempty"`
	LastThreshold    int        `db:"last_threshold" json:"lastThreshold"`
	CreatedAt        time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updatedAt"`
}

// IsTemplate — шаблон ежедневной цели: сам прогресс не копит, только порождает экземпляры.
func (g Goal) IsTemplate() bool { return g.IsDailyRecurring && g.ParentGoalID == nil }

func (g Goal) IsInstance() bool { return g.ParentGoalID != nil }

// Window — эффективное окно цели в днях [from, to] включительно.
func (g Goal) Window() (from, to clock.Day) {
	if g.IsInstance() && g.ReferenceDate != nil {
		return *g.ReferenceDate, *g.ReferenceDate
	}
	return g.StartDate, g.EndDate
}

// Percent — текущий процент выполнения; для нулевой цели 100.
func Percent(value, target float64) float64 {
	if target <= 0 {
		return 100
	}
	return value / target * 100
}
