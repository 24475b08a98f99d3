// Package store описывает хранилище, общее для движков рейтинга и целей.
// Реализации: internal/db (PostgreSQL) и internal/store/memstore (в памяти).
package store

import (
	"context"
	"errors"
	"time"

	"github.com/Spok95/mentoria-engine/internal/clock"
	"github.com/Spok95/mentoria-engine/internal/models"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrAlreadySettled = errors.New("period already settled")
)

type Students interface {
	UpsertStudent(ctx context.Context, s models.Student) error
	ListStudentIDs(ctx context.Context) ([]string, error)
}

type Rankings interface {
	GetRankingEntry(ctx context.Context, studentID string) (*models.RankingEntry, error)
	// CreateRankingEntryIfAbsent возвращает запись из хранилища и признак того, что она создана сейчас.
	CreateRankingEntryIfAbsent(ctx context.Context, e models.RankingEntry) (models.RankingEntry, bool, error)
	UpdateWeeklyScore(ctx context.Context, studentID string, score float64, at time.Time) error
	ListRankingEntries(ctx context.Context) ([]models.RankingEntry, error)
	ListRankingEntriesByTier(ctx context.Context, tier int) ([]models.RankingEntry, error)
	// ApplySettlement — всё или ничего: отметка периода + все обновления записей.
	ApplySettlement(ctx context.Context, run models.SettlementRun, updates []models.RankingEntry) error
	LastSettlement(ctx context.Context) (*models.SettlementRun, error)
	AppendRankingHistory(ctx context.Context, rec models.RankingHistoryRecord) error
	ListRankingHistory(ctx context.Context, limit int) ([]models.RankingHistoryRecord, error)
}

// Facts — источники прогресса; интервалы [from, to).
type Facts interface {
	ListStudies(ctx context.Context, studentID string, from, to time.Time) ([]models.StudyFact, error)
	ListExams(ctx context.Context, studentID string, from, to time.Time) ([]models.ExamFact, error)
	ListContentProgress(ctx context.Context, studentID string, from, to time.Time) ([]models.ContentProgressFact, error)
	ListEssays(ctx context.Context, studentID string, from, to time.Time) ([]models.EssayFact, error)
	ListJournalEntries(ctx context.Context, studentID string, from, to time.Time) ([]models.JournalEntry, error)

	SaveStudy(ctx context.Context, f models.StudyFact) error
	SaveExam(ctx context.Context, f models.ExamFact) error
	SaveContentProgress(ctx context.Context, f models.ContentProgressFact) error
	SaveEssay(ctx context.Context, f models.EssayFact) error
	SaveJournalEntry(ctx context.Context, f models.JournalEntry) error
}

type Goals interface {
	GetGoal(ctx context.Context, studentID, goalID string) (*models.Goal, error)
	CreateGoal(ctx context.Context, g models.Goal) error
	ListActiveGoals(ctx context.Context, studentID string) ([]models.Goal, error)
	ListTemplates(ctx context.Context, studentID string) ([]models.Goal, error)
	FindInstance(ctx context.Context, studentID, parentID string, day clock.Day) (*models.Goal, error)
	// CreateInstanceIfAbsent опирается на уникальность (parent_goal_id, reference_date).
	CreateInstanceIfAbsent(ctx context.Context, g models.Goal) (bool, error)
	// UpdateGoals — одна атомарная пачка.
	UpdateGoals(ctx context.Context, studentID string, goals []models.Goal) error
}

type Notifications interface {
	CreateNotification(ctx context.Context, n models.Notification) error
	ListNotifications(ctx context.Context, studentID string, unreadOnly bool, limit int) ([]models.Notification, error)
	CountUnread(ctx context.Context, studentID string) (int, error)
	MarkNotificationRead(ctx context.Context, studentID, id string) error
	MarkAllNotificationsRead(ctx context.Context, studentID string) (int64, error)
	DeleteNotification(ctx context.Context, studentID, id string) error
}

type Store interface {
	Students
	Rankings
	Facts
	Goals
	Notifications
	Ping(ctx context.Context) error
	Close() error
}
