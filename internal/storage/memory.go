package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"campaign-scheduler/internal/facility"
)

// Memory keeps job records in process. Used for tests and the default
// single-node setup where restarts need not resume pending jobs.
type Memory struct {
	mu   sync.RWMutex
	jobs map[string]facility.Record
}

func NewMemory() *Memory {
	return &Memory{jobs: map[string]facility.Record{}}
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Insert(_ context.Context, r facility.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[r.ID]; ok {
		return fmt.Errorf("%w: %s", facility.ErrDuplicateJob, r.ID)
	}
	m.jobs[r.ID] = r
	return nil
}

func (m *Memory) Complete(_ context.Context, id string, status facility.Status, firedAt time.Time, errText string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.jobs[id]
	if !ok {
		return fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	r.Status = status
	r.FiredAt = firedAt
	r.LastError = errText
	m.jobs[id] = r
	return nil
}

func (m *Memory) ListPending(context.Context) ([]facility.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []facility.Record{}
	for _, r := range m.jobs {
		if r.Status == facility.StatusPending {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *Memory) Get(_ context.Context, id string) (facility.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.jobs[id]
	if !ok {
		return facility.Record{}, fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	return r, nil
}

func (m *Memory) Close() error { return nil }
