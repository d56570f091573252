package scheduler

import (
	"context"
	"time"

	"lead_pipeline_backend/platform/logger"
)

const defaultSweepInterval = 5 * time.Minute

// IntervalSweeper runs the follow-up sweep on a local ticker. It is the
// fallback when REDIS_URL is not configured and asynq is unavailable.
type IntervalSweeper struct {
	sweeper  Sweeper
	log      *logger.Logger
	interval time.Duration
	now      func() time.Time
}

func NewIntervalSweeper(sweeper Sweeper, interval time.Duration, log *logger.Logger) *IntervalSweeper {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &IntervalSweeper{
		sweeper:  sweeper,
		log:      log,
		interval: interval,
		now:      time.Now,
	}
}

func (s *IntervalSweeper) Run(ctx context.Context) {
	if s == nil || s.sweeper == nil {
		return
	}

	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *IntervalSweeper) sweep(ctx context.Context) {
	sent, err := s.sweeper.Sweep(ctx, s.now())
	if err != nil {
		s.log.Warn("followup sweep failed", "error", err)
		return
	}

	if sent > 0 {
		s.log.Info("followup sweep sent reminders", "sent", sent)
	}
}
