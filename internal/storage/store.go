package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"campaign-scheduler/internal/config"
	"campaign-scheduler/internal/facility"
)

var ErrNotFound = errors.New("record not found")

// tableSchema is formatted with the dialect's timestamp type.
const tableSchema = `
CREATE TABLE IF NOT EXISTS scheduled_jobs (
	id         TEXT PRIMARY KEY,
	job_group  TEXT NOT NULL,
	trigger_at %[1]s NOT NULL,
	payload    TEXT NOT NULL,
	status     TEXT NOT NULL,
	last_error TEXT,
	created_at %[1]s NOT NULL,
	fired_at   %[1]s
)`

const indexSchema = `CREATE INDEX IF NOT EXISTS scheduled_jobs_status_idx ON scheduled_jobs (status, trigger_at)`

// schema returns the migration statements for a dialect, in order.
func schema(timestampType string) []string {
	return []string{fmt.Sprintf(tableSchema, timestampType), indexSchema}
}

// Open returns the job store selected by storage.driver.
func Open(ctx context.Context, cfg config.Config) (facility.Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Storage.Driver)) {
	case "", "memory":
		return NewMemory(), nil
	case "postgres", "pg":
		return New(ctx, cfg)
	case "sqlite", "sqlite3":
		return OpenSQLite(ctx, cfg.Storage.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", cfg.Storage.Driver)
	}
}

// Getter is implemented by stores that can look up a single record.
type Getter interface {
	Get(ctx context.Context, id string) (facility.Record, error)
}

var (
	_ Getter         = (*Memory)(nil)
	_ Getter         = (*Store)(nil)
	_ Getter         = (*SQLite)(nil)
	_ facility.Store = (*Memory)(nil)
	_ facility.Store = (*Store)(nil)
	_ facility.Store = (*SQLite)(nil)
)
