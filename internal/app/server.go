package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Spok95/mentoria-engine/internal/goals"
	"github.com/Spok95/mentoria-engine/internal/logging"
	"github.com/Spok95/mentoria-engine/internal/metrics"
	"github.com/Spok95/mentoria-engine/internal/models"
	"github.com/Spok95/mentoria-engine/internal/ranking"
	"github.com/Spok95/mentoria-engine/internal/store"
	"github.com/Spok95/mentoria-engine/internal/tg"
)

const maxBodyBytes = 1 << 20

type RankingService interface {
	Settle(ctx context.Context) (ranking.SettlementSummary, error)
	Backfill(ctx context.Context) (ranking.BackfillSummary, error)
	RefreshAll(ctx context.Context) (ranking.RefreshSummary, error)
	History(ctx context.Context, limit int) ([]models.RankingHistoryRecord, error)
	TierStandings(ctx context.Context, tier int) ([]ranking.Standing, error)
	AllStandings(ctx context.Context) (map[int][]ranking.Standing, error)
	Preview(ctx context.Context, studentID string) (ranking.Preview, error)
}

type GoalService interface {
	RunDaily(ctx context.Context) (goals.DailySummary, error)
	Recompute(ctx context.Context, studentID string) (goals.RecomputeResult, error)
	CreateGoal(ctx context.Context, in goals.NewGoal) (models.Goal, error)
	ActiveGoals(ctx context.Context, studentID string) ([]models.Goal, error)
	Goal(ctx context.Context, studentID, goalID string) (models.Goal, error)
}

type FactRecorder interface {
	RegisterStudent(ctx context.Context, st models.Student) (models.Student, error)
	Record(ctx context.Context, kind models.FactKind, studentID string, body []byte) (any, error)
}

type Trigger interface {
	FactWritten(ctx context.Context, studentID string, kind models.FactKind) error
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps — всё, что нужно HTTP-слою. Alerter и Pinger можно не задавать.
type Deps struct {
	Ranking       RankingService
	Goals         GoalService
	Facts         FactRecorder
	Trigger       Trigger
	Notifications store.Notifications
	Pinger        Pinger
	Alerter       tg.Alerter
	Location      *time.Location
	AdminToken    string
	SchoolName    string
	// LogLevel — обработчик уровня логирования (zap.AtomicLevel): GET читает, PUT меняет.
	LogLevel http.Handler
	Log      *zap.Logger
}

type Server struct {
	Deps
	log *zap.Logger
}

func NewServer(d Deps) *Server {
	if d.Alerter == nil {
		d.Alerter = tg.Nop{}
	}
	if d.Location == nil {
		d.Location = time.UTC
	}
	if d.SchoolName == "" {
		d.SchoolName = "mentoria"
	}
	return &Server{Deps: d, log: logging.OrNop(d.Log)}
}

// Router собирает все маршруты. /admin и /triggers закрыты токеном администратора.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(s.requestLogger)
	r.Use(chimw.Recoverer)
	r.Use(limitBody)

	r.Get("/healthz", s.healthz)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/admin", func(r chi.Router) {
		r.Use(s.adminOnly)
		r.Post("/ranking/settle", s.settle)
		r.Post("/ranking/backfill", s.backfill)
		r.Post("/ranking/refresh", s.refreshAll)
		r.Get("/ranking/history", s.history)
		r.Get("/ranking/export.xlsx", s.exportRanking)
		r.Post("/goals/daily", s.runDaily)
		if s.LogLevel != nil {
			r.Method(http.MethodGet, "/log-level", s.LogLevel)
			r.Method(http.MethodPut, "/log-level", s.LogLevel)
		}
	})

	r.With(s.adminOnly).Post("/triggers/fact-written", s.factWritten)

	r.Get("/ranking/tiers/{tier}", s.tierStandings)

	r.Route("/students/{studentID}", func(r chi.Router) {
		r.Put("/", s.registerStudent)
		r.Get("/ranking", s.studentRanking)
		r.Post("/facts/{kind}", s.recordFact)

		r.Get("/goals", s.listGoals)
		r.Post("/goals", s.createGoal)
		r.Get("/goals/{goalID}", s.getGoal)
		r.Post("/goals/recompute", s.recomputeGoals)

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", s.listNotifications)
			r.Get("/unread-count", s.unreadCount)
			r.Post("/read-all", s.readAll)
			r.Post("/{notificationID}/read", s.markRead)
			r.Delete("/{notificationID}", s.deleteNotification)
		})
	})
	return r
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	if s.Pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 800*time.Millisecond)
		defer cancel()
		if err := s.Pinger.Ping(ctx); err != nil {
			http.Error(w, "db not ok: "+err.Error(), http.StatusServiceUnavailable)
			return
		}
	}
	_, _ = w.Write([]byte("ok"))
}
