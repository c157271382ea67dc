package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"campaign-scheduler/internal/api"
	"campaign-scheduler/internal/campaign"
	"campaign-scheduler/internal/config"
	"campaign-scheduler/internal/customer"
	"campaign-scheduler/internal/facility"
	"campaign-scheduler/internal/listener"
	"campaign-scheduler/internal/scheduler"
	"campaign-scheduler/internal/storage"
	"campaign-scheduler/internal/template"
)

func Run(cfg config.Config) {
	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(cfg.Sender.OutputDir, 0o755); err != nil {
		log.Fatal().Err(err).Str("dir", cfg.Sender.OutputDir).Msg("create send log dir")
	}

	// Storage
	store, err := storage.Open(rootCtx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Storage.Driver).Msg("init storage")
	}
	defer store.Close()

	// Scheduler + executor
	exec := scheduler.NewExecutor(cfg.Sender.OutputDir, cfg.Sender.Cooldown)
	sched, err := scheduler.New(facility.CronProvider{
		Store:    store,
		Dispatch: exec.Execute,
		Location: cfg.Location(),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("init scheduler")
	}

	svc, err := campaign.NewCampaignService(
		sched,
		template.NewFileSource(cfg.Templates),
		campaign.CustomerLoaderFunc(customer.LoadCustomers),
		campaign.OptionsFromConfig(cfg),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("init campaign service")
	}

	if cfg.Server.RunOnStart {
		// Duplicates are expected here when a durable store already holds this pass.
		if _, err := svc.LoadAndScheduleCampaigns(rootCtx); err != nil {
			log.Error().Err(err).Msg("startup scheduling pass")
		}
	}

	// HTTP
	getter, _ := store.(storage.Getter)
	h := api.NewHandler(svc, sched, getter)
	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      api.Router(h),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, ctx := errgroup.WithContext(rootCtx)

	// Listener (LISTEN/NOTIFY), postgres only
	if pg, ok := store.(*storage.Store); ok {
		g.Go(func() error {
			listener.ListenAndSchedule(ctx, pg, svc, cfg.Listener.Channel, cfg.Backoff())
			return nil
		})
	}

	g.Go(func() error {
		log.Info().Str("addr", cfg.Server.Addr).Msg("http server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("shutdown...")
		shCtx, shCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shCancel()
		_ = srv.Shutdown(shCtx)
		if err := sched.Close(shCtx); err != nil {
			log.Warn().Err(err).Msg("in-flight send jobs abandoned")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("server crashed")
	}
}
