package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// AuditWorker is a periodic background job that checks post scores against
// the vote ledger and reports drift.
type AuditWorker struct {
	scores   *ScoreService
	interval time.Duration
	log      zerolog.Logger
	stopCh   chan struct{}
}

// NewAuditWorker creates a worker that ticks every interval.
func NewAuditWorker(scores *ScoreService, interval time.Duration, log zerolog.Logger) *AuditWorker {
	return &AuditWorker{
		scores:   scores,
		interval: interval,
		log:      log.With().Str("component", "audit-worker").Logger(),
		stopCh:   make(chan struct{}),
	}
}

// Start runs one audit immediately, then every interval, until ctx is done or
// Stop is called.
func (w *AuditWorker) Start(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Msg("starting")

	w.tick(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.tick(ctx)
		case <-ctx.Done():
			w.log.Info().Msg("stopping (context cancelled)")
			return
		case <-w.stopCh:
			w.log.Info().Msg("stopping (stop signal)")
			return
		}
	}
}

// Stop signals the worker to stop.
func (w *AuditWorker) Stop() {
	close(w.stopCh)
}

func (w *AuditWorker) tick(ctx context.Context) {
	start := time.Now()
	drift, err := w.scores.AuditAll(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("audit failed")
		return
	}
	w.log.Info().Int("drifted", len(drift)).Dur("duration_ms", time.Since(start)).Msg("audit complete")
}
