package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Spok95/mentoria-engine/internal/app"
	"github.com/Spok95/mentoria-engine/internal/clock"
	"github.com/Spok95/mentoria-engine/internal/config"
	"github.com/Spok95/mentoria-engine/internal/ctxutil"
	"github.com/Spok95/mentoria-engine/internal/db"
	"github.com/Spok95/mentoria-engine/internal/goals"
	"github.com/Spok95/mentoria-engine/internal/ingest"
	"github.com/Spok95/mentoria-engine/internal/jobs"
	"github.com/Spok95/mentoria-engine/internal/logging"
	"github.com/Spok95/mentoria-engine/internal/notify"
	"github.com/Spok95/mentoria-engine/internal/observability"
	"github.com/Spok95/mentoria-engine/internal/ranking"
	"github.com/Spok95/mentoria-engine/internal/store"
	"github.com/Spok95/mentoria-engine/internal/store/memstore"
	"github.com/Spok95/mentoria-engine/internal/tg"
)

const (
	dailyTimeout   = 30 * time.Minute
	refreshTimeout = 5 * time.Minute
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Не удалось загрузить .env файл, используем переменные окружения")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	lg, err := logging.Init(cfg.LogLevel, cfg.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer lg.Closer()

	flush, err := observability.InitSentry(cfg.SentryDSN, cfg.Env, cfg.Release)
	if err != nil {
		lg.Base.Warn("sentry init failed", zap.Error(err))
	}
	defer flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg)
	if err != nil {
		lg.Base.Fatal("store", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	defer func() { _ = st.Close() }()

	clk := clock.Real{}
	emitter := notify.NewEmitter(st, clk, lg.Component("notify"))
	rankingSvc := ranking.NewService(st, clk, cfg.Location, emitter, lg.Component("ranking"))
	goalSvc := goals.NewService(st, clk, cfg.Location, emitter, lg.Component("goals"))

	dispatcher := ingest.NewDispatcher(goalSvc, rankingSvc, lg.Component("ingest"))
	recorder := ingest.NewRecorder(st, dispatcher, clk.Now, lg.Component("ingest"))

	alerter := tg.New(cfg.BotToken, cfg.AdminIDs, lg.Component("tg"))

	runner := jobs.New(ctx, cfg.Location, lg.Component("jobs"))
	runner.OnError(func(name string, err error) {
		alerter.Alert(ctx, tg.JobFailedText(name, err))
	})
	if err := runner.Cron("ranking-settlement", cfg.SettlementCron, ctxutil.SettlementTimeout, func(ctx context.Context) error {
		sum, err := rankingSvc.Settle(ctx)
		if errors.Is(err, store.ErrAlreadySettled) {
			lg.Base.Info("ranking period already settled")
			return nil
		}
		if err != nil {
			return err
		}
		alerter.Alert(ctx, tg.SettlementText(sum))
		return nil
	}); err != nil {
		lg.Base.Fatal("jobs", zap.Error(err))
	}
	if err := runner.Cron("goals-daily", cfg.DailyCron, dailyTimeout, func(ctx context.Context) error {
		sum, err := goalSvc.RunDaily(ctx)
		if err != nil {
			return err
		}
		if sum.Errors > 0 {
			alerter.Alert(ctx, tg.DailyText(sum))
		}
		return nil
	}); err != nil {
		lg.Base.Fatal("jobs", zap.Error(err))
	}
	if err := runner.Every(cfg.RefreshInterval, "ranking-refresh", refreshTimeout, func(ctx context.Context) error {
		_, err := rankingSvc.RefreshAll(ctx)
		return err
	}); err != nil {
		lg.Base.Fatal("jobs", zap.Error(err))
	}
	runner.Start()
	defer runner.Stop()

	srv := app.NewServer(app.Deps{
		Ranking:       rankingSvc,
		Goals:         goalSvc,
		Facts:         recorder,
		Trigger:       dispatcher,
		Notifications: st,
		Pinger:        st,
		Alerter:       alerter,
		Location:      cfg.Location,
		AdminToken:    cfg.AdminToken,
		LogLevel:      lg.Level,
		Log:           lg.Component("http"),
	})
	app.StartHTTP(ctx, cfg.HTTPAddr, srv.Router(), lg.Component("http"))

	next, _ := runner.NextRun("ranking-settlement")
	lg.Base.Info("mentoria engine started",
		zap.String("addr", cfg.HTTPAddr),
		zap.String("store", cfg.StoreDriver),
		zap.String("tz", cfg.Location.String()),
		zap.Time("next_settlement", next),
	)

	<-ctx.Done()
	lg.Base.Info("shutting down")
}

// openStore: postgres с миграциями при старте или память (для разработки).
func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	if cfg.StoreDriver == "memory" {
		return memstore.New(), nil
	}
	pg, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx, pg.DB()); err != nil {
		_ = pg.Close()
		return nil, err
	}
	return pg, nil
}
