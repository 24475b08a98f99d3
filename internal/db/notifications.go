package db

import (
	"context"

	"github.com/Spok95/mentoria-engine/internal/models"
)

func (s *Store) CreateNotification(ctx context.Context, n models.Notification) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO notifications (id, student_id, kind, title, message, related_goal_id, read, created_at)
		VALUES (:id, :student_id, :kind, :title, :message, :related_goal_id, :read, :created_at)
	`, n)
	return err
}

func (s *Store) ListNotifications(ctx context.Context, studentID string, unreadOnly bool, limit int) ([]models.Notification, error) {
	var out []models.Notification
	err := s.db.SelectContext(ctx, &out, `
		SELECT id, student_id, kind, title, message, related_goal_id, read, created_at
		FROM notifications
		WHERE student_id = $1 AND (NOT $2 OR NOT read)
		ORDER BY created_at DESC
		LIMIT NULLIF($3, 0)
	`, studentID, unreadOnly, max(limit, 0))
	return out, err
}

func (s *Store) CountUnread(ctx context.Context, studentID string) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `SELECT count(*) FROM notifications WHERE student_id = $1 AND NOT read`, studentID)
	return n, err
}

func (s *Store) MarkNotificationRead(ctx context.Context, studentID, id string) error {
	return affected(s.db.ExecContext(ctx,
		`UPDATE notifications SET read = true WHERE student_id = $1 AND id = $2`, studentID, id))
}

func (s *Store) MarkAllNotificationsRead(ctx context.Context, studentID string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET read = true WHERE student_id = $1 AND NOT read`, studentID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) DeleteNotification(ctx context.Context, studentID, id string) error {
	return affected(s.db.ExecContext(ctx,
		`DELETE FROM notifications WHERE student_id = $1 AND id = $2`, studentID, id))
}
