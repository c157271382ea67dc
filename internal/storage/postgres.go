package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"campaign-scheduler/internal/config"
	"campaign-scheduler/internal/facility"
)

// Store persists scheduled jobs in Postgres.
type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, cfg config.Config) (*Store, error) {
	dsn := cfg.DSN()
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres DSN: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.Postgres.MaxOpenConns)
	poolCfg.MinConns = int32(cfg.Postgres.MaxIdleConns)
	poolCfg.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	s := &Store{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range schema("TIMESTAMPTZ") {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate scheduled_jobs: %w", err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *Store) Insert(ctx context.Context, r facility.Record) error {
	payload, err := json.Marshal(r.Payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO scheduled_jobs (id, job_group, trigger_at, payload, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`, r.ID, r.Group, r.TriggerAt, string(payload), string(r.Status), r.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert job %s: %w", r.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", facility.ErrDuplicateJob, r.ID)
	}
	return nil
}

func (s *Store) Complete(ctx context.Context, id string, status facility.Status, firedAt time.Time, errText string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE scheduled_jobs SET status = $2, fired_at = $3, last_error = NULLIF($4, '')
		WHERE id = $1
	`, id, string(status), firedAt, errText)
	if err != nil {
		return fmt.Errorf("complete job %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	return nil
}

// ListPending loads every job that has not fired yet.
func (s *Store) ListPending(ctx context.Context) ([]facility.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := s.pool.Query(ctx, `
		SELECT id, job_group, trigger_at, payload, status, created_at
		FROM scheduled_jobs
		WHERE status = $1
		ORDER BY trigger_at, id
	`, string(facility.StatusPending))
	if err != nil {
		return nil, fmt.Errorf("query pending jobs: %w", err)
	}
	defer rows.Close()

	out := []facility.Record{}
	for rows.Next() {
		var (
			r       facility.Record
			payload string
			status  string
		)
		if err := rows.Scan(&r.ID, &r.Group, &r.TriggerAt, &payload, &status, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if err := json.Unmarshal([]byte(payload), &r.Payload); err != nil {
			return nil, fmt.Errorf("decode payload of %s: %w", r.ID, err)
		}
		r.Status = facility.Status(status)
		out = append(out, r)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (s *Store) Get(ctx context.Context, id string) (facility.Record, error) {
	var (
		r         facility.Record
		payload   string
		status    string
		lastError *string
		firedAt   *time.Time
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, job_group, trigger_at, payload, status, last_error, created_at, fired_at
		FROM scheduled_jobs WHERE id = $1
	`, id).Scan(&r.ID, &r.Group, &r.TriggerAt, &payload, &status, &lastError, &r.CreatedAt, &firedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return facility.Record{}, fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return facility.Record{}, fmt.Errorf("get job %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(payload), &r.Payload); err != nil {
		return facility.Record{}, fmt.Errorf("decode payload of %s: %w", id, err)
	}
	r.Status = facility.Status(status)
	if lastError != nil {
		r.LastError = *lastError
	}
	if firedAt != nil {
		r.FiredAt = *firedAt
	}
	return r, nil
}

func (s *Store) ListenChannel() string {
	return "campaign_refresh"
}

func (s *Store) PgxPool() *pgxpool.Pool {
	if s.pool == nil {
		panic(errors.New("pgx pool is nil"))
	}
	return s.pool
}

// Conn acquires a dedicated connection, e.g. for LISTEN.
func (s *Store) Conn(ctx context.Context) (*pgxpool.Conn, error) {
	return s.PgxPool().Acquire(ctx)
}
