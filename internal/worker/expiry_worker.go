package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/vandap/vandap-backend/internal/service"
)

// ExpiryWorker periodically finalizes in-progress attempts whose time window
// elapsed. Clients also detect expiry themselves, but only this sweep makes
// it durable when a client disappears mid-attempt.
type ExpiryWorker struct {
	attempts *service.AttemptService
	interval time.Duration
	log      zerolog.Logger
}

// NewExpiryWorker creates a new ExpiryWorker.
func NewExpiryWorker(attempts *service.AttemptService, interval time.Duration, log zerolog.Logger) *ExpiryWorker {
	return &ExpiryWorker{
		attempts: attempts,
		interval: interval,
		log:      log.With().Str("component", "expiry_worker").Logger(),
	}
}

// Start runs the sweep loop until the context is cancelled.
func (w *ExpiryWorker) Start(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Msg("ExpiryWorker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("ExpiryWorker stopping")
			return
		case <-ticker.C:
			sweepCtx, cancel := context.WithTimeout(ctx, w.interval)
			n, err := w.attempts.ExpireOverdue(sweepCtx)
			cancel()

			if err != nil {
				w.log.Error().Err(err).Msg("Expiry sweep failed")
				continue
			}
			if n > 0 {
				w.log.Info().Int("finalized", n).Msg("Expiry sweep finalized overdue attempts")
			}
		}
	}
}
