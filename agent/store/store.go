// Package store is the SQLite-backed data store for customers and tickets.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "modernc.org/sqlite"
)

type Config struct {
	Path        string        `envconfig:"DB_PATH" split_words:"true" default:"./data/support.db"`
	BusyTimeout time.Duration `envconfig:"DB_BUSY_TIMEOUT" split_words:"true" default:"5s"`
	MaxOpenConn int           `envconfig:"DB_MAX_OPEN_CONN" split_words:"true" default:"4"`
}

// Store wraps a bun handle. Every operation runs in its own scoped
// transaction; no connection state survives between calls.
type Store struct {
	db *bun.DB
}

func Open(ctx context.Context, cfg Config) (*Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("database path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}
	dsn := fmt.Sprintf(
		"file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_txlock=immediate",
		path, busy.Milliseconds(),
	)

	sqldb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	maxOpen := cfg.MaxOpenConn
	if maxOpen <= 0 {
		maxOpen = 4
	}
	sqldb.SetMaxOpenConns(maxOpen)
	sqldb.SetConnMaxLifetime(5 * time.Minute)

	s := New(bun.NewDB(sqldb, sqlitedialect.New()))
	if err := s.Ping(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	if err := s.Init(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}

	log.Debug().Str("component", "store").Str("path", path).Msg("database ready")
	return s, nil
}

func New(db *bun.DB) *Store {
	return &Store{db: db}
}

// Init creates tables, indexes and triggers when they do not exist yet.
func (s *Store) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaDDL); err != nil {
		return fmt.Errorf("create schema: %w", classify(err))
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", classify(err))
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) DB() *bun.DB {
	return s.db
}

func (s *Store) inTx(ctx context.Context, fn func(ctx context.Context, tx bun.Tx) error) error {
	err := s.db.RunInTx(ctx, nil, fn)
	return classify(err)
}
