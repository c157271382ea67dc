package campaign

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"campaign-scheduler/internal/config"
	"campaign-scheduler/internal/customer"
	"campaign-scheduler/internal/engine"
	"campaign-scheduler/internal/observability"
	"campaign-scheduler/internal/template"
)

// CustomerSource loads the candidate customers of a pass.
type CustomerSource interface {
	LoadCustomers(path string) ([]customer.Customer, error)
}

// CustomerLoaderFunc adapts a plain function to CustomerSource.
type CustomerLoaderFunc func(path string) ([]customer.Customer, error)

func (f CustomerLoaderFunc) LoadCustomers(path string) ([]customer.Customer, error) { return f(path) }

// JobScheduler registers one send job per assignment.
type JobScheduler interface {
	Schedule(ctx context.Context, a engine.Assignment) (string, error)
}

type Options struct {
	CustomersPath string
	Campaigns     []config.CampaignConfig
	Location      *time.Location
	FailFast      bool // stop at the first registration failure
}

func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		CustomersPath: cfg.Customers.Path,
		Campaigns:     cfg.Campaigns,
		Location:      cfg.Location(),
		FailFast:      cfg.Scheduling.FailFast,
	}
}

// Report summarizes one scheduling pass.
type Report struct {
	Customers   int      `json:"customers"`
	Campaigns   int      `json:"campaigns"`
	Assignments int      `json:"assignments"`
	Scheduled   int      `json:"scheduled"`
	Failed      int      `json:"failed"`
	Jobs        []string `json:"jobs"`
}

// CampaignService runs scheduling passes: load, match, schedule.
type CampaignService struct {
	scheduler JobScheduler
	templates template.Source
	customers CustomerSource
	registry  *template.Registry
	engine    *engine.CampaignEngine
	opts      Options
	now       func() time.Time

	mu sync.Mutex // one pass at a time
}

func NewCampaignService(s JobScheduler, t template.Source, c CustomerSource, opts Options) (*CampaignService, error) {
	if s == nil || t == nil || c == nil {
		return nil, errors.Join(engine.ErrInvalidArgument, errors.New("scheduler, template source and customer source are required"))
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &CampaignService{
		scheduler: s,
		templates: t,
		customers: c,
		registry:  template.NewRegistry(),
		engine:    engine.NewEngine(),
		opts:      opts,
		now:       time.Now,
	}, nil
}

// LoadAndScheduleCampaigns runs one pass. A load or configuration failure
// aborts before any job is registered. Registration failures are collected
// and returned together; with FailFast the pass stops at the first one.
func (s *CampaignService) LoadAndScheduleCampaigns(ctx context.Context) (Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	defer func() { observability.PassDuration.Observe(time.Since(start).Seconds()) }()

	var rep Report
	templates, err := s.templates.LoadTemplates()
	if err != nil {
		log.Error().Err(err).Msg("load templates")
		return rep, err
	}
	s.registry.Update(templates)

	customers, err := s.customers.LoadCustomers(s.opts.CustomersPath)
	if err != nil {
		log.Error().Err(err).Str("path", s.opts.CustomersPath).Msg("load customers")
		return rep, err
	}
	rep.Customers = len(customers)

	campaigns, err := engine.FromConfig(s.opts.Campaigns, s.now(), s.opts.Location)
	if err != nil {
		log.Error().Err(err).Msg("build campaigns")
		return rep, err
	}
	for _, c := range campaigns {
		if _, ok := s.registry.Lookup(c.TemplateName); !ok {
			err := fmt.Errorf("campaign template %q is not loaded", c.TemplateName)
			log.Error().Err(err).Msg("resolve templates")
			return rep, err
		}
	}
	rep.Campaigns = len(campaigns)
	s.engine.BuildSnapshot(campaigns)

	assignments, err := s.engine.Match(customers)
	if err != nil {
		log.Error().Err(err).Msg("match campaigns")
		return rep, err
	}
	rep.Assignments = len(assignments)

	var errs []error
	for _, a := range assignments {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		observability.Assignments.WithLabelValues(a.Campaign.TemplateName).Inc()
		id, err := s.scheduler.Schedule(ctx, a)
		if err != nil {
			rep.Failed++
			errs = append(errs, fmt.Errorf("schedule %s: %w", id, err))
			if s.opts.FailFast {
				break
			}
			continue
		}
		rep.Scheduled++
		rep.Jobs = append(rep.Jobs, id)
	}

	log.Info().
		Int("customers", rep.Customers).
		Int("campaigns", rep.Campaigns).
		Int("assignments", rep.Assignments).
		Int("scheduled", rep.Scheduled).
		Int("failed", rep.Failed).
		Dur("took", time.Since(start)).
		Msg("scheduling pass finished")
	return rep, errors.Join(errs...)
}

// Campaigns returns the campaign set of the last pass.
func (s *CampaignService) Campaigns() []engine.Campaign { return s.engine.Campaigns() }
