package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"campaign-scheduler/internal/facility"
)

// SQLite persists scheduled jobs in a single database file.
type SQLite struct {
	db *sql.DB
}

func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	_, _ = db.ExecContext(ctx, "PRAGMA busy_timeout = 5000")
	_, _ = db.ExecContext(ctx, "PRAGMA journal_mode = WAL")

	for _, stmt := range schema("TEXT") {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate scheduled_jobs: %w", err)
		}
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLite) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQLite) Insert(ctx context.Context, r facility.Record) error {
	payload, err := json.Marshal(r.Payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO scheduled_jobs (id, job_group, trigger_at, payload, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		r.ID, r.Group, formatTime(r.TriggerAt), string(payload), string(r.Status), formatTime(r.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert job %s: %w", r.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", facility.ErrDuplicateJob, r.ID)
	}
	return nil
}

func (s *SQLite) Complete(ctx context.Context, id string, status facility.Status, firedAt time.Time, errText string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE scheduled_jobs SET status = ?, fired_at = ?, last_error = NULLIF(?, '') WHERE id = ?`,
		string(status), formatTime(firedAt), errText, id,
	)
	if err != nil {
		return fmt.Errorf("complete job %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *SQLite) ListPending(ctx context.Context) ([]facility.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, job_group, trigger_at, payload, status, last_error, created_at, fired_at
		 FROM scheduled_jobs WHERE status = ? ORDER BY trigger_at, id`,
		string(facility.StatusPending),
	)
	if err != nil {
		return nil, fmt.Errorf("query pending jobs: %w", err)
	}
	defer rows.Close()

	out := []facility.Record{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLite) Get(ctx context.Context, id string) (facility.Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, job_group, trigger_at, payload, status, last_error, created_at, fired_at
		 FROM scheduled_jobs WHERE id = ?`, id)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return facility.Record{}, fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	return r, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (facility.Record, error) {
	var (
		r                          facility.Record
		triggerAt, payload, status string
		createdAt                  string
		lastError, firedAt         sql.NullString
	)
	if err := sc.Scan(&r.ID, &r.Group, &triggerAt, &payload, &status, &lastError, &createdAt, &firedAt); err != nil {
		return facility.Record{}, err
	}
	var err error
	if r.TriggerAt, err = time.Parse(time.RFC3339Nano, triggerAt); err != nil {
		return facility.Record{}, fmt.Errorf("decode trigger_at of %s: %w", r.ID, err)
	}
	if r.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return facility.Record{}, fmt.Errorf("decode created_at of %s: %w", r.ID, err)
	}
	if firedAt.Valid && firedAt.String != "" {
		if r.FiredAt, err = time.Parse(time.RFC3339Nano, firedAt.String); err != nil {
			return facility.Record{}, fmt.Errorf("decode fired_at of %s: %w", r.ID, err)
		}
	}
	if err := json.Unmarshal([]byte(payload), &r.Payload); err != nil {
		return facility.Record{}, fmt.Errorf("decode payload of %s: %w", r.ID, err)
	}
	r.Status = facility.Status(status)
	r.LastError = lastError.String
	return r, nil
}

// sortableLayout is fixed-width so TEXT timestamps order correctly.
const sortableLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(sortableLayout)
}
