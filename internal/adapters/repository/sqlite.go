package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/okian/loadboard/internal/domain/model"
	"github.com/okian/loadboard/pkg/logger"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// SQLiteEventLog stores events in a SQLite database.
type SQLiteEventLog struct {
	db     *sql.DB
	now    func() time.Time
	log    logger.Logger
	closed atomic.Bool
}

// OpenSQLite opens (creating if needed) the event log at path. ":memory:"
// opens a private in-memory database.
func OpenSQLite(ctx context.Context, path string, opts ...Option) (*SQLiteEventLog, error) {
	if strings.TrimSpace(path) == "" {
		return nil, ErrInvalidPath
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}
	// One connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	s := &SQLiteEventLog{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Get().Named("repository.sqlite")
	}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	s.log.Info(ctx, "event log opened", logger.String("path", path))
	return s, nil
}

func (s *SQLiteEventLog) migrate(ctx context.Context) error {
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`CREATE TABLE IF NOT EXISTS events (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			event_id TEXT UNIQUE,
			ts TEXT,
			product TEXT,
			plate TEXT,
			status TEXT,
			received_at TIMESTAMP
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate event log: %w", err)
		}
	}
	return nil
}

// Append implements EventLog.
func (s *SQLiteEventLog) Append(ctx context.Context, ev model.RawEvent) error {
	if s.closed.Load() {
		return ErrClosed
	}
	var id any
	if ev.EventID != "" {
		id = ev.EventID
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events(event_id, ts, product, plate, status, received_at) VALUES(?,?,?,?,?,?)
		ON CONFLICT(event_id) DO NOTHING`,
		id, ev.Timestamp, ev.Product, ev.Vehicle, ev.Status, s.now().UTC())
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// All implements EventLog.
func (s *SQLiteEventLog) All(ctx context.Context) ([]model.RawEvent, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT COALESCE(event_id, ''), ts, product, plate, status FROM events ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.RawEvent
	for rows.Next() {
		var ev model.RawEvent
		if err := rows.Scan(&ev.EventID, &ev.Timestamp, &ev.Product, &ev.Vehicle, &ev.Status); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return out, nil
}

// Count implements EventLog.
func (s *SQLiteEventLog) Count(ctx context.Context) (int, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

// Close implements EventLog.
func (s *SQLiteEventLog) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.db.Close()
}
