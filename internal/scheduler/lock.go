package scheduler

import (
	"context"
	"errors"
	"time"

	"lead_pipeline_backend/platform/logger"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

const (
	followupSweepLockKey = "lock:followups:sweep"
	followupSweepLockTTL = 2 * time.Minute
)

// Sweeper sends due follow-up reminders and reports how many went out.
type Sweeper interface {
	Sweep(ctx context.Context, now time.Time) (int, error)
}

// LockedSweeper runs a Sweeper only while holding a redis lock, so that
// concurrent scheduler replicas never send the same reminder twice.
//
// The lock is refreshed every ttl/2 while the sweep runs. If a refresh
// fails the sweep context is canceled, so a long batch never outlives its lock.
type LockedSweeper struct {
	sweeper Sweeper
	locker  *redislock.Client
	key     string
	ttl     time.Duration
	log     *logger.Logger
}

func NewLockedSweeper(sweeper Sweeper, client redis.UniversalClient, log *logger.Logger) *LockedSweeper {
	return &LockedSweeper{
		sweeper: sweeper,
		locker:  redislock.New(client),
		key:     followupSweepLockKey,
		ttl:     followupSweepLockTTL,
		log:     log,
	}
}

// Sweep returns (0, nil) when another replica holds the lock.
func (s *LockedSweeper) Sweep(ctx context.Context, now time.Time) (int, error) {
	lock, err := s.locker.Obtain(ctx, s.key, s.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		s.log.Info("followup sweep skipped, lock held elsewhere", "key", s.key)
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	defer func() {
		if releaseErr := lock.Release(context.WithoutCancel(ctx)); releaseErr != nil && !errors.Is(releaseErr, redislock.ErrLockNotHeld) {
			s.log.Warn("failed to release followup sweep lock", "error", releaseErr)
		}
	}()

	sweepCtx, cancel := context.WithCancel(ctx)
	refreshDone := make(chan struct{})
	go func() {
		defer close(refreshDone)
		s.keepAlive(sweepCtx, cancel, lock)
	}()
	defer func() {
		cancel()
		<-refreshDone
	}()

	return s.sweeper.Sweep(sweepCtx, now)
}

func (s *LockedSweeper) keepAlive(ctx context.Context, cancel context.CancelFunc, lock *redislock.Lock) {
	ticker := time.NewTicker(s.ttl / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := lock.Refresh(ctx, s.ttl, nil); err != nil {
				if ctx.Err() != nil {
					return
				}
				s.log.Warn("followup sweep lock lost, stopping sweep", "key", s.key, "error", err)
				cancel()
				return
			}
		}
	}
}
