// Package storage implements the persistence port on SQLite.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"buckets/internal/core"
	"buckets/internal/ports"

	_ "modernc.org/sqlite"
)

const pragmas = "?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)"

// SQLiteStore is a ports.Store backed by a single SQLite file.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

var _ ports.Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (creating if needed) the database at dbPath and
// brings its schema up to date.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	if _, err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+pragmas)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time; callers queue on the pool instead of hitting SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteStore{db: db, path: dbPath}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return persistErr("ping", err)
	}
	return nil
}

// Update runs fn inside a read-write transaction.
func (s *SQLiteStore) Update(ctx context.Context, fn func(ports.Tx) error) error {
	return s.withTx(ctx, fn, true)
}

// View runs fn inside a transaction that is always rolled back.
func (s *SQLiteStore) View(ctx context.Context, fn func(ports.Tx) error) error {
	return s.withTx(ctx, fn, false)
}

func (s *SQLiteStore) withTx(ctx context.Context, fn func(ports.Tx) error, commit bool) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return persistErr("begin transaction", err)
	}
	if err := fn(&sqliteTx{ctx: ctx, tx: sqlTx}); err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	if !commit {
		_ = sqlTx.Rollback()
		return nil
	}
	if err := sqlTx.Commit(); err != nil {
		return persistErr("commit transaction", err)
	}
	return nil
}

// persistErr tags a driver error with the persistence kind, turning
// missing rows into not found.
func persistErr(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}
	return fmt.Errorf("%s: %w: %w", op, core.ErrPersistence, err)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseDate(s string) core.Date {
	d, err := core.ParseDate(s)
	if err != nil {
		return core.Date{}
	}
	return d
}
