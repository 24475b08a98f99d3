package app

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Spok95/mentoria-engine/internal/goals"
	"github.com/Spok95/mentoria-engine/internal/models"
)

var timeNow = time.Now

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %w", errBadRequest, err)
	}
	return nil
}

func (s *Server) registerStudent(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &body); err != nil {
		s.sendErr(w, r, err)
		return
	}
	st, err := s.Facts.RegisterStudent(r.Context(), models.Student{
		ID:   chi.URLParam(r, "studentID"),
		Name: body.Name,
	})
	if err != nil {
		s.sendErr(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, st)
}

func (s *Server) recordFact(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.sendErr(w, r, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}
	kind := models.FactKind(chi.URLParam(r, "kind"))
	fact, err := s.Facts.Record(r.Context(), kind, chi.URLParam(r, "studentID"), body)
	if err != nil {
		s.sendErr(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, fact)
}

// factWritten — внешний триггер записи факта: хранилище фактов может жить отдельно.
func (s *Server) factWritten(w http.ResponseWriter, r *http.Request) {
	var body struct {
		StudentID string          `json:"studentId"`
		Kind      models.FactKind `json:"kind"`
	}
	if err := decodeJSON(r, &body); err != nil {
		s.sendErr(w, r, err)
		return
	}
	if body.StudentID == "" || !body.Kind.Valid() {
		s.sendErr(w, r, fmt.Errorf("%w: studentId and a known kind are required", errBadRequest))
		return
	}
	if err := s.Trigger.FactWritten(r.Context(), body.StudentID, body.Kind); err != nil {
		s.sendErr(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, nil)
}

func (s *Server) tierStandings(w http.ResponseWriter, r *http.Request) {
	tier, err := strconv.Atoi(chi.URLParam(r, "tier"))
	if err != nil {
		s.sendErr(w, r, fmt.Errorf("%w: tier must be a number", errBadRequest))
		return
	}
	standings, err := s.Ranking.TierStandings(r.Context(), tier)
	if err != nil {
		s.sendErr(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, standings)
}

func (s *Server) studentRanking(w http.ResponseWriter, r *http.Request) {
	p, err := s.Ranking.Preview(r.Context(), chi.URLParam(r, "studentID"))
	if err != nil {
		s.sendErr(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, p)
}

func (s *Server) listGoals(w http.ResponseWriter, r *http.Request) {
	gs, err := s.Goals.ActiveGoals(r.Context(), chi.URLParam(r, "studentID"))
	if err != nil {
		s.sendErr(w, r, err)
		return
	}
	if gs == nil {
		gs = []models.Goal{}
	}
	writeOK(w, http.StatusOK, gs)
}

func (s *Server) createGoal(w http.ResponseWriter, r *http.Request) {
	var in goals.NewGoal
	if err := decodeJSON(r, &in); err != nil {
		s.sendErr(w, r, err)
		return
	}
	in.StudentID = chi.URLParam(r, "studentID")
	g, err := s.Goals.CreateGoal(r.Context(), in)
	if err != nil {
		s.sendErr(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, g)
}

func (s *Server) getGoal(w http.ResponseWriter, r *http.Request) {
	g, err := s.Goals.Goal(r.Context(), chi.URLParam(r, "studentID"), chi.URLParam(r, "goalID"))
	if err != nil {
		s.sendErr(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, g)
}

func (s *Server) recomputeGoals(w http.ResponseWriter, r *http.Request) {
	res, err := s.Goals.Recompute(r.Context(), chi.URLParam(r, "studentID"))
	if err != nil {
		s.sendErr(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, res)
}
