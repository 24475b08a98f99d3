//go:build testutil
// +build testutil

// Package testdb поднимает одноразовый PostgreSQL в контейнере с накатанными миграциями.
package testdb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Spok95/mentoria-engine/internal/db"
)

const (
	image          = "postgres:17-alpine"
	startupTimeout = 2 * time.Minute
)

type DBHandle struct {
	DB     *sql.DB
	tables []string
	stop   func(context.Context) error
}

func (h *DBHandle) Close() {
	if h.DB != nil {
		_ = h.DB.Close()
	}
	if h.stop != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = h.stop(ctx)
	}
}

// Store — хранилище движка поверх контейнерной базы.
func (h *DBHandle) Store() *db.Store { return db.New(h.DB, "postgres") }

func Start(ctx context.Context) (h *DBHandle, err error) {
	ctx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	pg, err := postgres.RunContainer(ctx,
		tc.WithImage(image),
		postgres.WithDatabase("mentoria"),
		postgres.WithUsername("mentoria"),
		postgres.WithPassword("mentoria"),
		// postgres перезапускается после initdb, поэтому ждём второе сообщение
		tc.WithWaitStrategy(wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(startupTimeout)),
	)
	if err != nil {
		return nil, fmt.Errorf("start postgres: %w", err)
	}
	defer func() {
		if err != nil {
			_ = pg.Terminate(context.Background())
		}
	}()

	uri, err := pg.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, err
	}
	database, err := sql.Open("postgres", uri)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx, database); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	tables, err := engineTables(ctx, database)
	if err != nil {
		_ = database.Close()
		return nil, err
	}
	return &DBHandle{DB: database, tables: tables, stop: pg.Terminate}, nil
}

// engineTables — все таблицы схемы, кроме служебной таблицы goose.
func engineTables(ctx context.Context, database *sql.DB) ([]string, error) {
	rows, err := database.QueryContext(ctx, `
		SELECT tablename FROM pg_tables
		WHERE schemaname = 'public' AND tablename <> 'goose_db_version'
		ORDER BY tablename`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, pq.QuoteIdentifier(name))
	}
	return out, rows.Err()
}

// Reset очищает данные между тестами одного контейнера; схема остаётся.
func (h *DBHandle) Reset(ctx context.Context) error {
	if len(h.tables) == 0 {
		return nil
	}
	_, err := h.DB.ExecContext(ctx, "TRUNCATE "+strings.Join(h.tables, ", ")+" CASCADE")
	return err
}
