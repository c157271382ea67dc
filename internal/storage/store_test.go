package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campaign-scheduler/internal/config"
	"campaign-scheduler/internal/facility"
)

type jobStore interface {
	facility.Store
	Getter
}

func stores(t *testing.T) map[string]jobStore {
	t.Helper()
	lite, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "jobs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = lite.Close() })
	out := map[string]jobStore{
		"memory": NewMemory(),
		"sqlite": lite,
	}
	if pg := postgresStore(t); pg != nil {
		out["postgres"] = pg
	}
	return out
}

// postgresStore connects with the APP_POSTGRES_* settings when
// APP_TEST_POSTGRES is set, starting from an empty table.
func postgresStore(t *testing.T) *Store {
	t.Helper()
	if os.Getenv("APP_TEST_POSTGRES") == "" {
		return nil
	}
	ctx := context.Background()
	pg, err := New(ctx, config.Load())
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Close() })
	_, err = pg.pool.Exec(ctx, "TRUNCATE scheduled_jobs")
	require.NoError(t, err)
	return pg
}

func TestSchema_Dialects(t *testing.T) {
	for _, typ := range []string{"TEXT", "TIMESTAMPTZ"} {
		t.Run(typ, func(t *testing.T) {
			stmts := schema(typ)
			require.Len(t, stmts, 2)
			for _, stmt := range stmts {
				assert.NotContains(t, stmt, "%")
			}
			assert.Contains(t, stmts[0], "trigger_at "+typ+" NOT NULL")
			assert.Contains(t, stmts[0], "fired_at   "+typ)
			assert.True(t, strings.HasPrefix(stmts[1], "CREATE INDEX IF NOT EXISTS"))
		})
	}
}

func TestOpenSQLite_MigratesTwice(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "jobs.db")
	for i := 0; i < 2; i++ {
		s, err := OpenSQLite(ctx, path)
		require.NoError(t, err)
		require.NoError(t, s.Ping(ctx))
		require.NoError(t, s.Close())
	}
}

func TestPostgres_ListPendingOrdered(t *testing.T) {
	pg := postgresStore(t)
	if pg == nil {
		t.Skip("APP_TEST_POSTGRES not set")
	}
	ctx := context.Background()
	base := time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC)
	require.NoError(t, pg.Insert(ctx, record("b", base.Add(time.Second))))
	require.NoError(t, pg.Insert(ctx, record("c", base)))
	require.NoError(t, pg.Insert(ctx, record("a", base.Add(time.Second))))

	pending, err := pg.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	assert.Equal(t, []string{"c", "a", "b"}, []string{pending[0].ID, pending[1].ID, pending[2].ID})
}

func record(id string, at time.Time) facility.Record {
	return facility.Record{
		ID:        id,
		Group:     facility.DefaultGroup,
		TriggerAt: at,
		Payload:   facility.Payload{"templateName": "Template A", "customerId": "7"},
		Status:    facility.StatusPending,
		CreatedAt: at.Add(-time.Hour),
	}
}

func TestStore_InsertAndGet(t *testing.T) {
	at := time.Date(2026, 10, 18, 10, 15, 0, 0, time.UTC)
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Ping(ctx))
			require.NoError(t, s.Insert(ctx, record("a", at)))

			got, err := s.Get(ctx, "a")
			require.NoError(t, err)
			assert.Equal(t, "a", got.ID)
			assert.Equal(t, facility.DefaultGroup, got.Group)
			assert.True(t, at.Equal(got.TriggerAt))
			assert.Equal(t, facility.StatusPending, got.Status)
			assert.Equal(t, "7", got.Payload["customerId"])
			assert.True(t, got.FiredAt.IsZero())

			_, err = s.Get(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStore_DuplicateInsert(t *testing.T) {
	at := time.Date(2026, 10, 18, 10, 15, 0, 0, time.UTC)
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Insert(ctx, record("a", at)))
			assert.ErrorIs(t, s.Insert(ctx, record("a", at)), facility.ErrDuplicateJob)

			// Fired records still block re-registration.
			require.NoError(t, s.Complete(ctx, "a", facility.StatusFired, at, ""))
			assert.ErrorIs(t, s.Insert(ctx, record("a", at)), facility.ErrDuplicateJob)
		})
	}
}

func TestStore_CompleteAndListPending(t *testing.T) {
	base := time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC)
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Insert(ctx, record("late", base.Add(15*time.Minute))))
			require.NoError(t, s.Insert(ctx, record("early", base.Add(5*time.Minute))))
			require.NoError(t, s.Insert(ctx, record("failed", base)))

			require.NoError(t, s.Complete(ctx, "failed", facility.StatusFailed, base, "disk full"))
			assert.ErrorIs(t, s.Complete(ctx, "missing", facility.StatusFired, base, ""), ErrNotFound)

			pending, err := s.ListPending(ctx)
			require.NoError(t, err)
			ids := make([]string, 0, len(pending))
			for _, r := range pending {
				ids = append(ids, r.ID)
			}
			assert.ElementsMatch(t, []string{"early", "late"}, ids)

			got, err := s.Get(ctx, "failed")
			require.NoError(t, err)
			assert.Equal(t, facility.StatusFailed, got.Status)
			assert.Equal(t, "disk full", got.LastError)
			assert.True(t, base.Equal(got.FiredAt))
		})
	}
}

func TestSQLite_ListPendingOrderedAndDurable(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "jobs.db")
	base := time.Date(2026, 10, 18, 10, 0, 0, 0, time.FixedZone("EST", -5*3600))

	s, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Insert(ctx, record("b", base.Add(time.Second))))
	require.NoError(t, s.Insert(ctx, record("c", base.Add(500*time.Millisecond))))
	require.NoError(t, s.Insert(ctx, record("a", base.Add(time.Second))))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer s.Close()

	pending, err := s.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	assert.Equal(t, "c", pending[0].ID)
	assert.Equal(t, "a", pending[1].ID)
	assert.Equal(t, "b", pending[2].ID)
	assert.True(t, base.Add(500*time.Millisecond).Equal(pending[0].TriggerAt))
}

func TestOpen_Drivers(t *testing.T) {
	tests := []struct {
		name    string
		driver  string
		path    string
		want    any
		wantErr bool
	}{
		{name: "default", want: &Memory{}},
		{name: "memory", driver: "Memory", want: &Memory{}},
		{name: "sqlite", driver: "sqlite", path: filepath.Join(t.TempDir(), "x.db"), want: &SQLite{}},
		{name: "sqlite without path", driver: "sqlite3", wantErr: true},
		{name: "unknown", driver: "redis", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg config.Config
			cfg.Storage.Driver = tt.driver
			cfg.Storage.SQLitePath = tt.path

			s, err := Open(context.Background(), cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			assert.IsType(t, tt.want, s)
		})
	}
}
