package models

import "time"

type NotificationKind string

const (
	NotifyGoalCompleted    NotificationKind = "goal_completed"
	NotifyGoalCreated      NotificationKind = "goal_created"
	NotifyGoalExpired      NotificationKind = "goal_expired"
	NotifyProgress25       NotificationKind = "progress_25"
	NotifyProgress50       NotificationKind = "progress_50"
	NotifyProgress75       NotificationKind = "progress_75"
	NotifyRankingPromoted  NotificationKind = "ranking_promoted"
	NotifyRankingRelegated NotificationKind = "ranking_relegated"
)

type Notification struct {
	ID            string           `db:"id" json:"id"`
	StudentID     string           `db:"student_id" json:"studentId"`
	Kind          NotificationKind `db:"kind" json:"kind"`
	Title         string           `db:"title" json:"title"`
	Message       string           `db:"message" json:"message"`
	RelatedGoalID *string          `db:"related_goal_id" json:"relatedGoalId,omitempty"`
	Read          bool             `db:"read" json:"read"`
	CreatedAt     time.Time        `db:"created_at" json:"createdAt"`
}
