package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SettlementTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mentoria", Name: "settlement_transitions_total", Help: "Tier transitions applied by weekly settlements",
	}, []string{"outcome"})
	SettlementStudents = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "mentoria", Name: "settlement_students", Help: "Students processed by the last settlement",
	})
	LiveScoreRefreshes = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "mentoria", Name: "live_score_refreshes_total", Help: "Weekly score recomputations written",
	})
	GoalRecomputes = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "mentoria", Name: "goal_recomputes_total", Help: "Fact-triggered goal recomputations",
	})
	GoalsCompleted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "mentoria", Name: "goals_completed_total", Help: "Goals that reached their target",
	})
	DailyInstances = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mentoria", Name: "daily_goal_instances_total", Help: "Daily goal instances by lifecycle action",
	}, []string{"action"})
	Notifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mentoria", Name: "notifications_total", Help: "Notification writes by kind and result",
	}, []string{"kind", "result"})
	StudentErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mentoria", Name: "student_errors_total", Help: "Per-student failures swallowed by batch jobs",
	}, []string{"job"})
	HTTPErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "mentoria", Name: "http_errors_total", Help: "HTTP handler errors",
	})
	DBPing = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "mentoria", Name: "db_ping_seconds", Help: "DB ping latency",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(
		SettlementTransitions, SettlementStudents, LiveScoreRefreshes,
		GoalRecomputes, GoalsCompleted, DailyInstances,
		Notifications, StudentErrors, HTTPErrors, DBPing,
	)
}

func Handler() http.Handler { return promhttp.Handler() }

func ObserveDBPing(d time.Duration) { DBPing.Observe(d.Seconds()) }
