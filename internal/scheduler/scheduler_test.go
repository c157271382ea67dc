package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campaign-scheduler/internal/engine"
	"campaign-scheduler/internal/facility"
)

type registration struct {
	id      string
	at      time.Time
	payload facility.Payload
}

type MockFacility struct {
	startErr    error
	registerErr error
	started     int
	stopped     int
	regs        []registration
}

func (m *MockFacility) Start() error {
	m.started++
	return m.startErr
}

func (m *MockFacility) Register(_ context.Context, id string, at time.Time, p facility.Payload) error {
	if m.registerErr != nil {
		return m.registerErr
	}
	m.regs = append(m.regs, registration{id, at, p})
	return nil
}

func (m *MockFacility) Pending() []facility.Record { return nil }

func (m *MockFacility) Stop(context.Context) error {
	m.stopped++
	return nil
}

type MockProvider struct {
	fac   *MockFacility
	err   error
	calls int
}

func (m *MockProvider) GetFacility() (facility.Facility, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.fac, nil
}

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		provider *MockProvider
		wantErr  bool
	}{
		{"starts facility", &MockProvider{fac: &MockFacility{}}, false},
		{"provider fails", &MockProvider{err: errors.New("Scheduler initialization failed")}, true},
		{"start fails", &MockProvider{fac: &MockFacility{startErr: errors.New("boom")}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.provider)
			assert.Equal(t, 1, tt.provider.calls, "facility is obtained exactly once")
			if tt.wantErr {
				assert.Nil(t, s)
				assert.ErrorIs(t, err, facility.ErrUnavailable)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 1, tt.provider.fac.started)
		})
	}
}

func TestNew_KeepsCause(t *testing.T) {
	_, err := New(&MockProvider{err: errors.New("Scheduler initialization failed")})
	assert.ErrorContains(t, err, "Scheduler initialization failed")
}

func TestNew_NilProvider(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, facility.ErrUnavailable)
}

func TestSchedule(t *testing.T) {
	fac := &MockFacility{}
	s, err := New(&MockProvider{fac: fac})
	require.NoError(t, err)

	at := time.Now().Add(time.Minute)
	id, err := s.Schedule(context.Background(), assignment("TestTemplate", 1, 1, at))
	require.NoError(t, err)

	require.Len(t, fac.regs, 1)
	assert.Equal(t, id, fac.regs[0].id)
	assert.True(t, at.Equal(fac.regs[0].at))
	assert.Equal(t, "TestTemplate", fac.regs[0].payload[KeyTemplateName])
	assert.Equal(t, "1", fac.regs[0].payload[KeyCustomerID])
	assert.Equal(t, "1", fac.regs[0].payload[KeyPriority])
	assert.Equal(t, at.Format(time.RFC3339Nano), fac.regs[0].payload[KeySendTime])
}

func TestSchedule_DistinctCustomersDistinctIdentities(t *testing.T) {
	fac := &MockFacility{}
	s, err := New(&MockProvider{fac: fac})
	require.NoError(t, err)

	at := time.Now().Add(time.Hour)
	id1, err := s.Schedule(context.Background(), assignment("Template A", 1, 1, at))
	require.NoError(t, err)
	id2, err := s.Schedule(context.Background(), assignment("Template A", 2, 1, at))
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)
}

func TestSchedule_InvalidArgument(t *testing.T) {
	fac := &MockFacility{}
	s, err := New(&MockProvider{fac: fac})
	require.NoError(t, err)

	full := assignment("TestTemplate", 1, 1, time.Now())
	tests := []struct {
		name string
		a    engine.Assignment
	}{
		{"nil campaign", engine.Assignment{Customer: full.Customer}},
		{"nil customer", engine.Assignment{Campaign: full.Campaign}},
		{"empty", engine.Assignment{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Schedule(context.Background(), tt.a)
			assert.ErrorIs(t, err, engine.ErrInvalidArgument)
		})
	}
	assert.Empty(t, fac.regs, "facility must not be touched")
}

func TestSchedule_PropagatesRegistrationError(t *testing.T) {
	regErr := errors.New("scheduler error")
	s, err := New(&MockProvider{fac: &MockFacility{registerErr: regErr}})
	require.NoError(t, err)

	_, err = s.Schedule(context.Background(), assignment("Template A", 1, 1, time.Now()))
	assert.Same(t, regErr, err)
}

func TestClose(t *testing.T) {
	fac := &MockFacility{}
	s, err := New(&MockProvider{fac: fac})
	require.NoError(t, err)
	require.NoError(t, s.Close(context.Background()))
	assert.Equal(t, 1, fac.stopped)
}
