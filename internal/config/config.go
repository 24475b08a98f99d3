package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	StoreDriver string // postgres|memory
	DatabaseURL string
	Location    *time.Location
	HTTPAddr    string
	LogLevel    string
	Env         string // dev|prod
	SentryDSN   string
	Release     string

	// Telegram — только служебные оповещения админам; без токена выключено.
	BotToken string
	AdminIDs []int64

	AdminToken string

	SettlementCron  string
	DailyCron       string
	RefreshInterval time.Duration
}

func Load() (*Config, error) {
	tz := getenv("TZ", "America/Sao_Paulo")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("TZ %q: %w", tz, err)
	}

	adminIDs, err := parseIDs(os.Getenv("ADMIN_IDS"))
	if err != nil {
		return nil, fmt.Errorf("ADMIN_IDS: %w", err)
	}

	refresh, err := time.ParseDuration(getenv("REFRESH_INTERVAL", "15m"))
	if err != nil {
		return nil, fmt.Errorf("REFRESH_INTERVAL: %w", err)
	}

	cfg := &Config{
		StoreDriver:     strings.ToLower(getenv("STORE_DRIVER", "postgres")),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		Location:        loc,
		HTTPAddr:        getenv("HTTP_ADDR", ":8080"),
		LogLevel:        getenv("LOG_LEVEL", "info"),
		Env:             getenv("ENV", "dev"),
		SentryDSN:       os.Getenv("SENTRY_DSN"),
		Release:         os.Getenv("RELEASE"),
		BotToken:        os.Getenv("BOT_TOKEN"),
		AdminIDs:        adminIDs,
		AdminToken:      os.Getenv("ADMIN_TOKEN"),
		SettlementCron:  getenv("SETTLEMENT_CRON", "0 12 * * 0"),
		DailyCron:       getenv("DAILY_CRON", "0 0 * * *"),
		RefreshInterval: refresh,
	}

	switch cfg.StoreDriver {
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("required env DATABASE_URL is empty")
		}
	case "memory":
	default:
		return nil, fmt.Errorf("STORE_DRIVER: unknown driver %q", cfg.StoreDriver)
	}
	return cfg, nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func parseIDs(s string) ([]int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' || r == ';' })
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad id %q: %w", p, err)
		}
		out = append(out, n)
	}
	return out, nil
}
