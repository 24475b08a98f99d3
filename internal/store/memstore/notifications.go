package memstore

import (
	"context"
	"sort"

	"github.com/Spok95/mentoria-engine/internal/models"
	"github.com/Spok95/mentoria-engine/internal/store"
)

func (s *Store) CreateNotification(_ context.Context, n models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CreateNotification"); err != nil {
		return err
	}
	s.notifications = append(s.notifications, n)
	return nil
}

func (s *Store) ListNotifications(_ context.Context, studentID string, unreadOnly bool, limit int) ([]models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ListNotifications"); err != nil {
		return nil, err
	}
	var out []models.Notification
	for _, n := range s.notifications {
		if n.StudentID != studentID || (unreadOnly && n.Read) {
			continue
		}
		out = append(out, n)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) CountUnread(_ context.Context, studentID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CountUnread"); err != nil {
		return 0, err
	}
	n := 0
	for _, x := range s.notifications {
		if x.StudentID == studentID && !x.Read {
			n++
		}
	}
	return n, nil
}

func (s *Store) MarkNotificationRead(_ context.Context, studentID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("MarkNotificationRead"); err != nil {
		return err
	}
	for i := range s.notifications {
		if s.notifications[i].ID == id && s.notifications[i].StudentID == studentID {
			s.notifications[i].Read = true
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *Store) MarkAllNotificationsRead(_ context.Context, studentID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("MarkAllNotificationsRead"); err != nil {
		return 0, err
	}
	var n int64
	for i := range s.notifications {
		if s.notifications[i].StudentID == studentID && !s.notifications[i].Read {
			s.notifications[i].Read = true
			n++
		}
	}
	return n, nil
}

func (s *Store) DeleteNotification(_ context.Context, studentID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("DeleteNotification"); err != nil {
		return err
	}
	for i := range s.notifications {
		if s.notifications[i].ID == id && s.notifications[i].StudentID == studentID {
			s.notifications = append(s.notifications[:i], s.notifications[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

// Notifications — все уведомления ученика в порядке создания (для тестов).
func (s *Store) Notifications(studentID string) []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Notification
	for _, n := range s.notifications {
		if n.StudentID == studentID {
			out = append(out, n)
		}
	}
	return out
}

// History — журнал закрытий недель (для тестов).
func (s *Store) History() []models.RankingHistoryRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.RankingHistoryRecord, len(s.history))
	copy(out, s.history)
	return out
}
