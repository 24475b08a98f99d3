package app

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Spok95/mentoria-engine/internal/goals"
	"github.com/Spok95/mentoria-engine/internal/ingest"
	"github.com/Spok95/mentoria-engine/internal/observability"
	"github.com/Spok95/mentoria-engine/internal/ranking"
	"github.com/Spok95/mentoria-engine/internal/store"
)

var (
	errBadRequest   = errors.New("bad request")
	errUnauthorized = errors.New("unauthorized")
)

// codes: ошибка домена -> HTTP-статус; всё остальное 500.
var codes = []struct {
	err    error
	status int
}{
	{errBadRequest, http.StatusBadRequest},
	{ingest.ErrInvalidFact, http.StatusBadRequest},
	{ingest.ErrUnknownKind, http.StatusBadRequest},
	{goals.ErrInvalidGoal, http.StatusBadRequest},
	{ranking.ErrInvalidTier, http.StatusBadRequest},
	{errUnauthorized, http.StatusUnauthorized},
	{store.ErrNotFound, http.StatusNotFound},
	{store.ErrAlreadySettled, http.StatusConflict},
}

func statusOf(err error) int {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.status
		}
	}
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

type errResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// sendErr отвечает ошибкой; 5xx дополнительно уходят в лог и Sentry.
func (s *Server) sendErr(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("http request failed",
			zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Error(err))
		observability.CaptureErrWith(err, map[string]string{"path": r.URL.Path, "method": r.Method})
	}
	writeJSON(w, status, errResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ok — успешный ответ с флагом success и данными.
type ok struct {
	Success bool `json:"success"`
	Data    any  `json:"data,omitempty"`
}

func writeOK(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, ok{Success: true, Data: data})
}
