package scheduler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"campaign-scheduler/internal/facility"
	"campaign-scheduler/internal/observability"
)

// DefaultCooldown is the hold after each send before the job completes.
const DefaultCooldown = 30 * time.Minute

// Executor performs the simulated send of a fired job by appending a line
// to the send log of the job's calendar date.
type Executor struct {
	dir      string
	cooldown time.Duration
	locks    *pathLocks
}

func NewExecutor(dir string, cooldown time.Duration) *Executor {
	if dir == "" {
		dir = "."
	}
	return &Executor{dir: dir, cooldown: cooldown, locks: newPathLocks()}
}

// LogPath is the send log for the calendar date of t, in t's own location.
func (e *Executor) LogPath(t time.Time) string {
	return filepath.Join(e.dir, "sends_"+t.Format("20060102")+".txt")
}

func FormatSend(d JobData) string {
	return fmt.Sprintf("Sent %s to customer ID %d with priority %d at %s\n",
		d.TemplateName, d.CustomerID, d.Priority, d.SendTime.Format(time.RFC3339Nano))
}

// Execute is the facility's dispatch callback. File errors are returned as-is
// and are not retried. The cooldown ends early when ctx is cancelled.
func (e *Executor) Execute(ctx context.Context, p facility.Payload) error {
	observability.SendsInFlight.Inc()
	defer observability.SendsInFlight.Dec()

	d, err := ParseJobData(p)
	if err != nil {
		observability.SendErrors.WithLabelValues("payload").Inc()
		return err
	}
	path := e.LogPath(d.SendTime)
	if err := e.append(path, FormatSend(d)); err != nil {
		observability.SendErrors.WithLabelValues("io").Inc()
		log.Error().Err(err).Str("path", path).Int("customer_id", d.CustomerID).Msg("record send")
		return err
	}
	observability.Sends.Inc()
	log.Info().
		Str("template", d.TemplateName).
		Int("customer_id", d.CustomerID).
		Int("priority", d.Priority).
		Time("send_time", d.SendTime).
		Msg("campaign sent")

	if e.cooldown <= 0 {
		return nil
	}
	t := time.NewTimer(e.cooldown)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
		log.Info().Int("customer_id", d.CustomerID).Msg("cooldown abandoned on shutdown")
	}
	return nil
}

// append writes line as one record; a failed write is rolled back to the
// previous file size so no partial line survives.
func (e *Executor) append(path, line string) error {
	unlock := e.locks.Lock(path)
	defer unlock()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return err
	}
	if _, err := f.WriteString(line); err != nil {
		_ = f.Truncate(st.Size())
		_ = f.Close()
		return err
	}
	return f.Close()
}
