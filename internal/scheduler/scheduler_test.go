package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"lead_pipeline_backend/platform/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/bsm/redislock"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

type countingSweeper struct {
	mu    sync.Mutex
	calls int
	sent  int
	err   error
	block chan struct{}
}

func (s *countingSweeper) Sweep(context.Context, time.Time) (int, error) {
	s.mu.Lock()
	s.calls++
	block := s.block
	s.mu.Unlock()
	if block != nil {
		<-block
	}
	return s.sent, s.err
}

func (s *countingSweeper) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestLockedSweeperRunsAndReleases(t *testing.T) {
	client := newTestRedis(t)
	inner := &countingSweeper{sent: 3}
	s := NewLockedSweeper(inner, client, logger.Discard())

	for i := 0; i < 2; i++ {
		sent, err := s.Sweep(context.Background(), time.Now())
		if err != nil || sent != 3 {
			t.Fatalf("sweep %d: got %d, %v", i, sent, err)
		}
	}
	if inner.callCount() != 2 {
		t.Fatalf("expected lock to be released between sweeps, got %d calls", inner.callCount())
	}
	if n, _ := client.Exists(context.Background(), followupSweepLockKey).Result(); n != 0 {
		t.Fatal("expected lock key to be removed after sweep")
	}
}

func TestLockedSweeperSkipsWhenLockHeld(t *testing.T) {
	client := newTestRedis(t)
	held, err := redislock.New(client).Obtain(context.Background(), followupSweepLockKey, time.Minute, nil)
	if err != nil {
		t.Fatalf("obtain: %v", err)
	}
	defer func() { _ = held.Release(context.Background()) }()

	inner := &countingSweeper{sent: 3}
	sent, err := NewLockedSweeper(inner, client, logger.Discard()).Sweep(context.Background(), time.Now())
	if err != nil || sent != 0 {
		t.Fatalf("expected skip, got %d, %v", sent, err)
	}
	if inner.callCount() != 0 {
		t.Fatal("expected inner sweeper not to run while lock is held")
	}
}

func TestLockedSweeperConcurrentReplicas(t *testing.T) {
	client := newTestRedis(t)
	release := make(chan struct{})
	inner := &countingSweeper{sent: 1, block: release}
	a := NewLockedSweeper(inner, client, logger.Discard())
	b := NewLockedSweeper(inner, client, logger.Discard())

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = a.Sweep(context.Background(), time.Now())
	}()

	deadline := time.Now().Add(2 * time.Second)
	for inner.callCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	sent, err := b.Sweep(context.Background(), time.Now())
	close(release)
	<-done

	if err != nil || sent != 0 {
		t.Fatalf("expected second replica to skip, got %d, %v", sent, err)
	}
	if inner.callCount() != 1 {
		t.Fatalf("expected a single sweep, got %d", inner.callCount())
	}
}

type sweepFunc func(ctx context.Context, now time.Time) (int, error)

func (f sweepFunc) Sweep(ctx context.Context, now time.Time) (int, error) { return f(ctx, now) }

func TestLockedSweeperRefreshesLockDuringLongSweep(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	var stillHeld bool
	inner := sweepFunc(func(ctx context.Context, _ time.Time) (int, error) {
		mr.FastForward(80 * time.Millisecond)
		time.Sleep(150 * time.Millisecond)
		mr.FastForward(80 * time.Millisecond)
		stillHeld = mr.Exists(followupSweepLockKey)
		return 1, ctx.Err()
	})

	s := NewLockedSweeper(inner, client, logger.Discard())
	s.ttl = 100 * time.Millisecond

	sent, err := s.Sweep(context.Background(), time.Now())
	if err != nil || sent != 1 {
		t.Fatalf("unexpected result %d, %v", sent, err)
	}
	if !stillHeld {
		t.Fatal("expected the lock to be refreshed past its original ttl")
	}
}

func TestLockedSweeperStopsWhenLockIsLost(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	inner := sweepFunc(func(ctx context.Context, _ time.Time) (int, error) {
		mr.Del(followupSweepLockKey)
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(2 * time.Second):
			return 0, nil
		}
	})

	s := NewLockedSweeper(inner, client, logger.Discard())
	s.ttl = 100 * time.Millisecond

	if _, err := s.Sweep(context.Background(), time.Now()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected sweep to be canceled after losing the lock, got %v", err)
	}
}

func TestHandleFollowupSweep(t *testing.T) {
	inner := &countingSweeper{sent: 2}
	w := newWorker(inner, logger.Discard())

	task, err := NewFollowupSweepTask(FollowupSweepPayload{Source: "test"})
	if err != nil {
		t.Fatalf("task: %v", err)
	}
	if err := w.mux.ProcessTask(context.Background(), task); err != nil {
		t.Fatalf("process: %v", err)
	}
	if inner.callCount() != 1 {
		t.Fatalf("expected one sweep, got %d", inner.callCount())
	}
}

func TestHandleFollowupSweepPropagatesError(t *testing.T) {
	w := newWorker(&countingSweeper{err: errors.New("db down")}, logger.Discard())
	task, _ := NewFollowupSweepTask(FollowupSweepPayload{})
	if err := w.mux.ProcessTask(context.Background(), task); err == nil {
		t.Fatal("expected sweep error to be returned")
	}
}

func TestHandleFollowupSweepBadPayloadSkipsRetry(t *testing.T) {
	w := newWorker(&countingSweeper{}, logger.Discard())
	err := w.mux.ProcessTask(context.Background(), asynq.NewTask(TaskFollowupSweep, []byte("{")))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry, got %v", err)
	}
}

func TestIntervalSweeperRunsImmediatelyAndStops(t *testing.T) {
	inner := &countingSweeper{}
	s := NewIntervalSweeper(inner, time.Hour, logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for inner.callCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	if inner.callCount() != 1 {
		t.Fatalf("expected the initial sweep only, got %d", inner.callCount())
	}
}

func TestRedisClientOptTLS(t *testing.T) {
	opt, err := redisClientOpt("rediss://user:pw@cache.example.com:6380/2", true)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if opt.Addr != "cache.example.com:6380" || opt.DB != 2 || opt.Password != "pw" {
		t.Fatalf("unexpected opt %+v", opt)
	}
	if opt.TLSConfig == nil || !opt.TLSConfig.InsecureSkipVerify {
		t.Fatal("expected insecure TLS config")
	}

	plain, err := redisClientOpt("redis://localhost:6379/0", false)
	if err != nil || plain.TLSConfig != nil {
		t.Fatalf("expected no TLS for redis://, got %+v, %v", plain.TLSConfig, err)
	}
}
