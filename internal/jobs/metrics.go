package jobs

import "github.com/prometheus/client_golang/prometheus"

// Метрики по имени задачи: ranking-settlement, goals-daily, ranking-refresh.
var (
	jobRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mentoria_job_runs_total",
		Help: "Scheduled job runs by outcome",
	}, []string{"job", "outcome"})

	jobDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mentoria_job_duration_seconds",
		Help:    "Scheduled job duration in seconds",
		Buckets: []float64{.05, .25, 1, 5, 15, 60, 300, 900},
	}, []string{"job"})

	jobLastSuccess = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "mentoria_job_last_success_timestamp_seconds",
		Help: "Unix time of the last successful run; alert when the weekly settlement goes stale",
	}, []string{"job"})
)

const (
	outcomeOK    = "ok"
	outcomeError = "error"
	outcomePanic = "panic"
)

func init() {
	prometheus.MustRegister(jobRuns, jobDuration, jobLastSuccess)
}
