// Package history persists courtesy seat notification attempts in SQLite
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/randytsao24/comfortablemove/internal/courtesy"
)

//go:embed schema.sql
var schemaSQL string

const (
	DefaultLimit = 20
	MaxLimit     = 200

	recordTimeout = 5 * time.Second

	// Fixed width so text order matches time order
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// Attempt is one finished notification attempt
type Attempt struct {
	ID         string    `json:"id"`
	Route      string    `json:"route"`
	DeviceName string    `json:"device_name"`
	Success    bool      `json:"success"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Store wraps a SQLite connection with write serialization
type Store struct {
	conn    *sql.DB
	writeMu sync.Mutex
	logger  *slog.Logger
}

var _ courtesy.Recorder = (*Store)(nil)

// Open opens the database at path and ensures the schema exists
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows a single writer
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(time.Hour)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := conn.ExecContext(ctx, pragma); err != nil {
			logger.Warn("failed to set pragma", "pragma", pragma, "error", err)
		}
	}

	s := &Store{conn: conn, logger: logger}
	if err := s.ensureSchema(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	logger.Info("attempt history ready", "path", path)
	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) ensureSchema(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, err := s.conn.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Record stores a finished attempt
func (s *Store) Record(ctx context.Context, a Attempt) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO courtesy_attempts (id, route, device_name, success, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Route, a.DeviceName, a.Success, a.Error,
		a.StartedAt.UTC().Format(timeLayout),
		a.FinishedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to record attempt %s: %w", a.ID, err)
	}
	return nil
}

// Recent returns up to limit attempts, newest first
func (s *Store) Recent(ctx context.Context, limit int) ([]Attempt, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, route, device_name, success, error, started_at, finished_at
		FROM courtesy_attempts
		ORDER BY finished_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query attempts: %w", err)
	}
	defer rows.Close()

	attempts := []Attempt{}
	for rows.Next() {
		var a Attempt
		var started, finished string
		if err := rows.Scan(&a.ID, &a.Route, &a.DeviceName, &a.Success, &a.Error, &started, &finished); err != nil {
			return nil, fmt.Errorf("failed to scan attempt: %w", err)
		}
		a.StartedAt = parseTime(started)
		a.FinishedAt = parseTime(finished)
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate attempts: %w", err)
	}
	return attempts, nil
}

// RecordOutcome stores a notifier outcome. Failures are logged, not returned.
func (s *Store) RecordOutcome(o courtesy.Outcome) {
	a := Attempt{
		ID:         o.AttemptID.String(),
		Route:      o.Route,
		DeviceName: o.DeviceName,
		Success:    o.Success,
		StartedAt:  o.StartedAt,
		FinishedAt: o.FinishedAt,
	}
	if o.Err != nil {
		a.Error = o.Err.Error()
	}

	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	if err := s.Record(ctx, a); err != nil {
		s.logger.Error("failed to record courtesy attempt", "attempt", a.ID, "error", err)
	}
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
