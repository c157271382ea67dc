package listener

import (
	"context"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"

	"campaign-scheduler/internal/campaign"
	"campaign-scheduler/internal/storage"
)

// PassRunner runs one scheduling pass.
type PassRunner interface {
	LoadAndScheduleCampaigns(ctx context.Context) (campaign.Report, error)
}

// ListenAndSchedule runs a scheduling pass whenever the channel is notified,
// e.g. after the customer data or campaign set changed.
func ListenAndSchedule(ctx context.Context, st *storage.Store, svc PassRunner, channel string, baseBackoff time.Duration) {
	conn, err := st.Conn(ctx)
	if err != nil {
		log.Error().Err(err).Msg("acquire conn for listen")
		return
	}
	defer conn.Release()

	if channel == "" {
		channel = st.ListenChannel()
	}
	if _, err = conn.Exec(ctx, "LISTEN "+channel); err != nil {
		log.Error().Err(err).Str("channel", channel).Msg("listen")
		return
	}
	log.Info().Str("channel", channel).Msg("listening for scheduling triggers")

	var lastRun time.Time
	for {
		ntf, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info().Msg("listener stopped")
				return
			}
			backoff := jitter(baseBackoff)
			log.Error().Err(err).Dur("retry_in", backoff).Msg("notify wait error")
			select {
			case <-ctx.Done():
				log.Info().Msg("listener stopped")
				return
			case <-time.After(backoff):
			}
			continue
		}
		if time.Since(lastRun) < 200*time.Millisecond {
			continue // debounce burst of notifications
		}
		lastRun = time.Now()
		log.Info().Str("channel", ntf.Channel).Str("payload", ntf.Payload).Msg("trigger received; running scheduling pass")
		if _, err := svc.LoadAndScheduleCampaigns(ctx); err != nil {
			log.Error().Err(err).Msg("triggered scheduling pass")
		}
	}
}

func jitter(base time.Duration) time.Duration {
	if base <= 0 {
		base = time.Second
	}
	factor := 0.5 + rand.Float64() // 0.5x-1.5x
	return time.Duration(float64(base) * factor)
}
