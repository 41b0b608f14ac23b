// internal/scheduler/scheduler.go
package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/invensight/stockpulse/internal/service"
)

// Scheduler runs the evaluation on a fixed interval until its context is
// cancelled.
type Scheduler struct {
	svc      *service.EvaluationService
	interval time.Duration
}

func New(svc *service.EvaluationService, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Scheduler{svc: svc, interval: interval}
}

// Run evaluates once immediately, then on every tick. A failed run is logged
// and the loop continues; the next tick retries.
func (s *Scheduler) Run(ctx context.Context) {
	log.Info().Dur("interval", s.interval).Msg("evaluation scheduler started")

	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("evaluation scheduler stopped")
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if _, err := s.svc.RunEvaluation(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		log.Error().Err(err).Msg("scheduled evaluation failed")
	}
}
