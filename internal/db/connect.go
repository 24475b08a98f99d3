// Package db — хранилище PostgreSQL (pgx через database/sql, sqlx для сканирования).
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/Spok95/mentoria-engine/internal/ctxutil"
	"github.com/Spok95/mentoria-engine/internal/metrics"
	"github.com/Spok95/mentoria-engine/internal/store"
)

type Store struct {
	db *sqlx.DB
}

var _ store.Store = (*Store)(nil)

// Open подключается к DATABASE_URL и проверяет соединение.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sqlx.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db}
	if err := s.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return s, nil
}

// New оборачивает уже открытое соединение (тесты поднимают его сами).
func New(db *sql.DB, driverName string) *Store {
	return &Store{db: sqlx.NewDb(db, driverName)}
}

func (s *Store) DB() *sql.DB { return s.db.DB }

func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	start := time.Now()
	err := s.db.PingContext(ctx)
	metrics.ObserveDBPing(time.Since(start))
	return err
}

func (s *Store) Close() error { return s.db.Close() }

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

// affected превращает «ни одна строка не затронута» в ErrNotFound.
func affected(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
