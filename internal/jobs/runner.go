package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/Spok95/mentoria-engine/internal/ctxutil"
	"github.com/Spok95/mentoria-engine/internal/logging"
	"github.com/Spok95/mentoria-engine/internal/observability"
)

type Job func(ctx context.Context) error

// Runner — планировщик фоновых задач в часовом поясе школы.
// Каждая задача работает в singleton-режиме: следующий запуск ждёт окончания текущего.
type Runner struct {
	ctx     context.Context
	sched   *gocron.Scheduler
	log     *zap.Logger
	onError func(name string, err error)
}

func New(ctx context.Context, loc *time.Location, log *zap.Logger) *Runner {
	s := gocron.NewScheduler(loc)
	s.SingletonModeAll()
	return &Runner{ctx: ctx, sched: s, log: logging.OrNop(log)}
}

// OnError — хук для алертов о неудачном запуске.
func (r *Runner) OnError(fn func(name string, err error)) { r.onError = fn }

// Cron регистрирует задачу по cron-выражению (5 полей).
func (r *Runner) Cron(name, expr string, timeout time.Duration, fn Job) error {
	if _, err := r.sched.Cron(expr).Tag(name).Do(r.run, name, timeout, fn); err != nil {
		return fmt.Errorf("schedule %s (%q): %w", name, expr, err)
	}
	return nil
}

// Every регистрирует периодическую задачу; первый запуск — через interval. interval <= 0 — выключено.
func (r *Runner) Every(interval time.Duration, name string, timeout time.Duration, fn Job) error {
	if interval <= 0 {
		r.log.Info("job disabled", zap.String("job", name))
		return nil
	}
	if _, err := r.sched.Every(interval).WaitForSchedule().Tag(name).Do(r.run, name, timeout, fn); err != nil {
		return fmt.Errorf("schedule %s every %s: %w", name, interval, err)
	}
	return nil
}

func (r *Runner) Start() { r.sched.StartAsync() }

func (r *Runner) Stop() { r.sched.Stop() }

// RunNow запускает задачу вне расписания (singleton-режим сохраняется).
func (r *Runner) RunNow(name string) error { return r.sched.RunByTag(name) }

// NextRun — время следующего запуска задачи.
func (r *Runner) NextRun(name string) (time.Time, bool) {
	jobs, err := r.sched.FindJobsByTag(name)
	if err != nil || len(jobs) == 0 {
		return time.Time{}, false
	}
	return jobs[0].NextRun(), true
}

func (r *Runner) run(name string, timeout time.Duration, fn Job) {
	if r.ctx.Err() != nil {
		return
	}
	ctx, cancel := ctxutil.WithTimeout(ctxutil.WithOp(r.ctx, name), timeout)
	defer cancel()

	start := time.Now()
	outcome, err := r.call(ctx, fn)
	took := time.Since(start)
	jobRuns.WithLabelValues(name, outcome).Inc()
	jobDuration.WithLabelValues(name).Observe(took.Seconds())
	if err == nil {
		jobLastSuccess.WithLabelValues(name).Set(float64(time.Now().Unix()))
		r.log.Debug("job done", zap.String("job", name), zap.Duration("took", took))
		return
	}
	r.log.Error("job failed", zap.String("job", name), zap.String("outcome", outcome),
		zap.Duration("took", took), zap.Error(err))
	observability.CaptureCtx(ctx, err, map[string]string{"job": name, "outcome": outcome})
	if r.onError != nil {
		r.onError(name, err)
	}
}

// call переводит панику задачи в ошибку, чтобы планировщик продолжал работу.
func (r *Runner) call(ctx context.Context, fn Job) (outcome string, err error) {
	defer func() {
		if p := recover(); p != nil {
			outcome, err = outcomePanic, fmt.Errorf("panic: %v", p)
		}
	}()
	if err := fn(ctx); err != nil {
		return outcomeError, err
	}
	return outcomeOK, nil
}
