package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Spok95/mentoria-engine/internal/models"
)

func (s *Server) listNotifications(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 50)
	if err != nil {
		s.sendErr(w, r, err)
		return
	}
	unread := r.URL.Query().Get("unread") == "true"
	ns, err := s.Notifications.ListNotifications(r.Context(), chi.URLParam(r, "studentID"), unread, limit)
	if err != nil {
		s.sendErr(w, r, err)
		return
	}
	if ns == nil {
		ns = []models.Notification{}
	}
	writeOK(w, http.StatusOK, ns)
}

func (s *Server) unreadCount(w http.ResponseWriter, r *http.Request) {
	n, err := s.Notifications.CountUnread(r.Context(), chi.URLParam(r, "studentID"))
	if err != nil {
		s.sendErr(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]int{"unread": n})
}

func (s *Server) readAll(w http.ResponseWriter, r *http.Request) {
	n, err := s.Notifications.MarkAllNotificationsRead(r.Context(), chi.URLParam(r, "studentID"))
	if err != nil {
		s.sendErr(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]int64{"updated": n})
}

func (s *Server) markRead(w http.ResponseWriter, r *http.Request) {
	err := s.Notifications.MarkNotificationRead(r.Context(),
		chi.URLParam(r, "studentID"), chi.URLParam(r, "notificationID"))
	if err != nil {
		s.sendErr(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, nil)
}

func (s *Server) deleteNotification(w http.ResponseWriter, r *http.Request) {
	err := s.Notifications.DeleteNotification(r.Context(),
		chi.URLParam(r, "studentID"), chi.URLParam(r, "notificationID"))
	if err != nil {
		s.sendErr(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, nil)
}
