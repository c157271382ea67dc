package scheduler

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"campaign-scheduler/internal/engine"
	"campaign-scheduler/internal/facility"
	"campaign-scheduler/internal/observability"
)

// Scheduler registers one send job per assignment with its timer facility.
type Scheduler struct {
	fac facility.Facility
}

// New obtains and starts the facility. A scheduler without a running
// facility is never returned, and startup is not retried.
func New(p facility.Provider) (*Scheduler, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: no provider", facility.ErrUnavailable)
	}
	fac, err := p.GetFacility()
	if err != nil {
		log.Error().Err(err).Msg("obtain scheduling facility")
		return nil, unavailable(err)
	}
	if err := fac.Start(); err != nil {
		log.Error().Err(err).Msg("start scheduling facility")
		return nil, unavailable(err)
	}
	return &Scheduler{fac: fac}, nil
}

func unavailable(err error) error {
	if errors.Is(err, facility.ErrUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", facility.ErrUnavailable, err)
}

// Schedule registers the assignment and returns its job identity.
// Facility errors are returned unchanged.
func (s *Scheduler) Schedule(ctx context.Context, a engine.Assignment) (string, error) {
	if a.Campaign == nil {
		return "", errors.Join(engine.ErrInvalidArgument, errors.New("assignment has no campaign"))
	}
	if a.Customer == nil {
		return "", errors.Join(engine.ErrInvalidArgument, errors.New("assignment has no customer"))
	}

	d := NewJobData(a)
	id := d.Identity()
	if err := s.fac.Register(ctx, id, d.SendTime, d.Payload()); err != nil {
		observability.RegistrationErrors.WithLabelValues(reason(err)).Inc()
		log.Error().Err(err).Str("job", id).Msg("register send job")
		return id, err
	}
	observability.JobsRegistered.Inc()
	log.Debug().Str("job", id).Time("send_time", d.SendTime).Msg("send job scheduled")
	return id, nil
}

func (s *Scheduler) Pending() []facility.Record { return s.fac.Pending() }

// Close stops the facility, waiting for in-flight jobs until ctx ends.
func (s *Scheduler) Close(ctx context.Context) error { return s.fac.Stop(ctx) }

func reason(err error) string {
	switch {
	case errors.Is(err, facility.ErrDuplicateJob):
		return "duplicate"
	case errors.Is(err, facility.ErrInvalidTrigger), errors.Is(err, facility.ErrInvalidJob):
		return "invalid"
	case errors.Is(err, facility.ErrNotStarted), errors.Is(err, facility.ErrUnavailable):
		return "unavailable"
	}
	return "other"
}
