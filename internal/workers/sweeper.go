// Package workers holds the background jobs that run outside the request
// path.
package workers

import (
	"context"

	"github.com/rs/zerolog/log"

	"callflow/internal/engine/notify"
	"callflow/internal/pkg/metrics"
	"callflow/internal/platform/repositories"
)

// Sweeper retries notifications whose delivery attempts failed or never
// left the in-memory queue. The webhook pipeline itself does no retries;
// outbound redelivery is entirely this job's responsibility.
type Sweeper struct {
	repo        *repositories.NotificationRepository
	sink        notify.Sink
	maxAttempts int
	batchSize   int
}

func NewSweeper(repo *repositories.NotificationRepository, sink notify.Sink, maxAttempts, batchSize int) *Sweeper {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Sweeper{repo: repo, sink: sink, maxAttempts: maxAttempts, batchSize: batchSize}
}

// Sweep delivers one batch of undelivered notifications, oldest first.
func (s *Sweeper) Sweep(ctx context.Context) error {
	pending, err := s.repo.ListUndelivered(ctx, s.maxAttempts, s.batchSize)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}

	delivered := 0
	for _, n := range pending {
		if ctx.Err() != nil {
			break
		}

		if err := s.sink.Deliver(ctx, n); err != nil {
			metrics.NotificationsFailed.Inc()
			log.Warn().Err(err).Str("notification_id", n.ID).Int("attempts", n.DeliveryAttempts).Msg("sweep delivery failed")
			if err := s.repo.MarkAttemptFailed(ctx, n.ID, err.Error(), s.maxAttempts); err != nil {
				log.Error().Err(err).Str("notification_id", n.ID).Msg("failed to record delivery attempt")
			}
			continue
		}

		metrics.NotificationsDelivered.Inc()
		delivered++
		if err := s.repo.MarkDelivered(ctx, n.ID); err != nil {
			log.Error().Err(err).Str("notification_id", n.ID).Msg("failed to record delivery")
		}
	}

	log.Info().Int("pending", len(pending)).Int("delivered", delivered).Msg("notification sweep finished")
	return nil
}
