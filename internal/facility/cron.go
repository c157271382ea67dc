package facility

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const completeTimeout = 5 * time.Second

// onceSchedule fires exactly once at its trigger time. cron asks for Next
// once when the entry is added and once after each run.
type onceSchedule struct {
	at    time.Time
	calls atomic.Int32
}

func (s *onceSchedule) Next(time.Time) time.Time {
	if s.calls.Add(1) == 1 {
		return s.at
	}
	return time.Time{}
}

type pendingJob struct {
	rec   Record
	entry cron.EntryID
}

// Cron is a Facility driven by robfig/cron. Each fired job runs on its own
// goroutine, so concurrent dispatches are expected.
type Cron struct {
	mu      sync.Mutex
	c       *cron.Cron
	store   Store
	fire    DispatchFunc
	loc     *time.Location
	started bool
	pending map[string]pendingJob

	ctx    context.Context
	cancel context.CancelFunc
}

type Option func(*Cron)

func WithLocation(loc *time.Location) Option {
	return func(f *Cron) {
		if loc != nil {
			f.loc = loc
		}
	}
}

func NewCron(store Store, fire DispatchFunc, opts ...Option) *Cron {
	f := &Cron{
		store:   store,
		fire:    fire,
		loc:     time.Local,
		pending: map[string]pendingJob{},
	}
	for _, o := range opts {
		o(f)
	}
	f.ctx, f.cancel = context.WithCancel(context.Background())
	logger := cronLogger{l: log.Logger.With().Str("component", "facility").Logger()}
	f.c = cron.New(
		cron.WithLocation(f.loc),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger)),
	)
	return f
}

// Start restores pending records from the store and starts triggering.
func (f *Cron) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.started {
		return nil
	}
	if f.store == nil || f.fire == nil {
		return fmt.Errorf("%w: store and dispatch are required", ErrUnavailable)
	}
	ctx, cancel := context.WithTimeout(f.ctx, completeTimeout)
	defer cancel()
	recs, err := f.store.ListPending(ctx)
	if err != nil {
		return fmt.Errorf("%w: restore pending jobs: %v", ErrUnavailable, err)
	}
	for _, r := range recs {
		f.scheduleLocked(r)
	}
	f.c.Start()
	f.started = true
	log.Info().Int("restored", len(recs)).Str("tz", f.loc.String()).Msg("facility started")
	return nil
}

// Register persists and arms a one-shot trigger. Failures are returned as-is.
func (f *Cron) Register(ctx context.Context, id string, at time.Time, p Payload) error {
	if strings.TrimSpace(id) == "" {
		return ErrInvalidJob
	}
	if at.IsZero() {
		return fmt.Errorf("%w: zero trigger time for %s", ErrInvalidTrigger, id)
	}

	f.mu.Lock()
	started := f.started
	_, dup := f.pending[id]
	f.mu.Unlock()
	if !started {
		return ErrNotStarted
	}
	if dup {
		return fmt.Errorf("%w: %s", ErrDuplicateJob, id)
	}

	rec := Record{
		ID:        id,
		Group:     DefaultGroup,
		TriggerAt: at,
		Payload:   clonePayload(p),
		Status:    StatusPending,
		CreatedAt: time.Now(),
	}
	// The store rejects a concurrent registration of the same id.
	if err := f.store.Insert(ctx, rec); err != nil {
		return err
	}
	f.mu.Lock()
	f.scheduleLocked(rec)
	f.mu.Unlock()
	log.Debug().Str("job", id).Time("trigger_at", at).Msg("job registered")
	return nil
}

func (f *Cron) scheduleLocked(rec Record) {
	id := rec.ID
	entry := f.c.Schedule(&onceSchedule{at: rec.TriggerAt}, cron.FuncJob(func() { f.run(id) }))
	f.pending[id] = pendingJob{rec: rec, entry: entry}
}

// run dispatches a fired job. The record leaves pending state before the
// dispatch starts so a restart never fires it a second time.
func (f *Cron) run(id string) {
	f.mu.Lock()
	pj, ok := f.pending[id]
	delete(f.pending, id)
	f.mu.Unlock()
	if !ok {
		return
	}
	f.c.Remove(pj.entry)

	start := time.Now()
	f.complete(id, StatusFired, start, "")

	if err := f.fire(f.ctx, clonePayload(pj.rec.Payload)); err != nil {
		log.Error().Err(err).Str("job", id).Dur("took", time.Since(start)).Msg("job failed")
		f.complete(id, StatusFailed, start, err.Error())
		return
	}
	log.Info().Str("job", id).Dur("took", time.Since(start)).Msg("job completed")
}

func (f *Cron) complete(id string, status Status, firedAt time.Time, errText string) {
	ctx, cancel := context.WithTimeout(context.Background(), completeTimeout)
	defer cancel()
	if err := f.store.Complete(ctx, id, status, firedAt, errText); err != nil {
		log.Error().Err(err).Str("job", id).Str("status", string(status)).Msg("record job outcome")
	}
}

// Pending lists armed jobs ordered by trigger time.
func (f *Cron) Pending() []Record {
	f.mu.Lock()
	out := make([]Record, 0, len(f.pending))
	for _, pj := range f.pending {
		out = append(out, pj.rec)
	}
	f.mu.Unlock()
	slices.SortFunc(out, func(a, b Record) int {
		if c := a.TriggerAt.Compare(b.TriggerAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

// Stop cancels running dispatches and waits for them to return or ctx to end.
// Records not yet fired stay pending in the store.
func (f *Cron) Stop(ctx context.Context) error {
	f.mu.Lock()
	started := f.started
	f.started = false
	f.mu.Unlock()

	f.cancel()
	if !started {
		return nil
	}
	select {
	case <-f.c.Stop().Done():
		log.Info().Msg("facility stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CronProvider builds a Cron facility after checking the store is reachable.
type CronProvider struct {
	Store    Store
	Dispatch DispatchFunc
	Location *time.Location
}

func (p CronProvider) GetFacility() (Facility, error) {
	if p.Store == nil {
		return nil, fmt.Errorf("%w: no store configured", ErrUnavailable)
	}
	ctx, cancel := context.WithTimeout(context.Background(), completeTimeout)
	defer cancel()
	if err := p.Store.Ping(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return NewCron(p.Store, p.Dispatch, WithLocation(p.Location)), nil
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct{ l zerolog.Logger }

func (c cronLogger) Info(msg string, kv ...interface{}) {
	c.l.Debug().Fields(kv).Msg(msg)
}

func (c cronLogger) Error(err error, msg string, kv ...interface{}) {
	c.l.Error().Err(err).Fields(kv).Msg(msg)
}
