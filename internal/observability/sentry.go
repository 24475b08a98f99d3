package observability

import (
	"context"
	"errors"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/Spok95/mentoria-engine/internal/ctxutil"
)

func InitSentry(dsn, env, release string) (func(), error) {
	if dsn == "" {
		return func() {}, nil
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: env,
		Release:     release,
	}); err != nil {
		return func() {}, err
	}
	return func() { sentry.Flush(2 * time.Second) }, nil
}

func CaptureErr(err error) {
	if err != nil {
		sentry.CaptureException(err)
	}
}

// CaptureErrWith — то же, но с тегами (job, student_id, goal_id...).
func CaptureErrWith(err error, tags map[string]string) {
	if err == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		sentry.CaptureException(err)
	})
}

// CaptureCtx добавляет к тегам операцию и ученика из ctx. Отмену не репортим:
// это штатная остановка процесса.
func CaptureCtx(ctx context.Context, err error, tags map[string]string) {
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	all := ctxutil.Tags(ctx)
	for k, v := range tags {
		all[k] = v
	}
	CaptureErrWith(err, all)
}
