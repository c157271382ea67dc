package facility

import (
	"context"
	"errors"
	"maps"
	"time"
)

var (
	ErrUnavailable    = errors.New("scheduling facility unavailable")
	ErrNotStarted     = errors.New("scheduling facility not started")
	ErrDuplicateJob   = errors.New("duplicate job identity")
	ErrInvalidTrigger = errors.New("invalid trigger time")
	ErrInvalidJob     = errors.New("invalid job identity")
)

// DefaultGroup is the job group every campaign registration belongs to.
const DefaultGroup = "Campaigns"

type Payload map[string]string

// DispatchFunc runs a fired job. ctx is cancelled when the facility stops.
type DispatchFunc func(ctx context.Context, p Payload) error

// Facility is the handle the job scheduler registers triggers with.
type Facility interface {
	Start() error
	Register(ctx context.Context, id string, at time.Time, p Payload) error
	Pending() []Record
	Stop(ctx context.Context) error
}

// Provider hands out a facility handle.
type Provider interface {
	GetFacility() (Facility, error)
}

type Status string

const (
	StatusPending Status = "pending"
	StatusFired   Status = "fired"
	StatusFailed  Status = "failed"
)

// Record is the persisted form of a registration.
type Record struct {
	ID        string    `json:"id"`
	Group     string    `json:"group"`
	TriggerAt time.Time `json:"trigger_at"`
	Payload   Payload   `json:"payload"`
	Status    Status    `json:"status"`
	LastError string    `json:"last_error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	FiredAt   time.Time `json:"fired_at,omitzero"`
}

// Store persists registrations. Insert must reject an identity that was
// already inserted, pending or not, with ErrDuplicateJob.
type Store interface {
	Ping(ctx context.Context) error
	Insert(ctx context.Context, r Record) error
	Complete(ctx context.Context, id string, status Status, firedAt time.Time, errText string) error
	ListPending(ctx context.Context) ([]Record, error)
	Close() error
}

func clonePayload(p Payload) Payload {
	if p == nil {
		return Payload{}
	}
	return maps.Clone(p)
}
