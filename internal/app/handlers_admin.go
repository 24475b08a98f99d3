package app

import (
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/Spok95/mentoria-engine/internal/export"
	"github.com/Spok95/mentoria-engine/internal/goals"
	"github.com/Spok95/mentoria-engine/internal/ranking"
	"github.com/Spok95/mentoria-engine/internal/tg"
)

// Сводки админ-операций отдаются плоско: {"success":true,"totalStudents":...}.
type (
	settleResponse struct {
		Success bool `json:"success"`
		ranking.SettlementSummary
	}
	backfillResponse struct {
		Success bool `json:"success"`
		ranking.BackfillSummary
	}
	refreshResponse struct {
		Success bool `json:"success"`
		ranking.RefreshSummary
	}
	dailyResponse struct {
		Success bool `json:"success"`
		goals.DailySummary
	}
)

// settle — ручное закрытие недели; повтор в том же периоде даёт 409.
func (s *Server) settle(w http.ResponseWriter, r *http.Request) {
	sum, err := s.Ranking.Settle(r.Context())
	if err != nil {
		s.sendErr(w, r, err)
		return
	}
	s.Alerter.Alert(r.Context(), tg.SettlementText(sum))
	writeJSON(w, http.StatusOK, settleResponse{Success: true, SettlementSummary: sum})
}

func (s *Server) backfill(w http.ResponseWriter, r *http.Request) {
	sum, err := s.Ranking.Backfill(r.Context())
	if err != nil {
		s.sendErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, backfillResponse{Success: true, BackfillSummary: sum})
}

func (s *Server) refreshAll(w http.ResponseWriter, r *http.Request) {
	sum, err := s.Ranking.RefreshAll(r.Context())
	if err != nil {
		s.sendErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, refreshResponse{Success: true, RefreshSummary: sum})
}

func (s *Server) history(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 10)
	if err != nil {
		s.sendErr(w, r, err)
		return
	}
	recs, err := s.Ranking.History(r.Context(), limit)
	if err != nil {
		s.sendErr(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, recs)
}

func (s *Server) exportRanking(w http.ResponseWriter, r *http.Request) {
	standings, err := s.Ranking.AllStandings(r.Context())
	if err != nil {
		s.sendErr(w, r, err)
		return
	}
	hist, err := s.Ranking.History(r.Context(), 0)
	if err != nil {
		s.sendErr(w, r, err)
		return
	}
	name := export.BuildRankingFilename(s.SchoolName, timeNow().In(s.Location))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	if err := export.WriteRanking(w, standings, hist, s.Location); err != nil {
		// заголовки уже ушли, остаётся только лог
		s.log.Error("ranking export failed", zap.Error(err))
	}
}

func (s *Server) runDaily(w http.ResponseWriter, r *http.Request) {
	sum, err := s.Goals.RunDaily(r.Context())
	if err != nil {
		s.sendErr(w, r, err)
		return
	}
	s.Alerter.Alert(r.Context(), tg.DailyText(sum))
	writeJSON(w, http.StatusOK, dailyResponse{Success: true, DailySummary: sum})
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s=%q", errBadRequest, key, v)
	}
	return n, nil
}
