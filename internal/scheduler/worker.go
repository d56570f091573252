package scheduler

import (
	"context"
	"fmt"
	"time"

	"lead_pipeline_backend/platform/config"
	"lead_pipeline_backend/platform/logger"

	"github.com/hibiken/asynq"
)

type Worker struct {
	server    *asynq.Server
	scheduler *asynq.Scheduler
	mux       *asynq.ServeMux
	sweeper   Sweeper
	log       *logger.Logger
	now       func() time.Time
}

// NewWorker builds the asynq server and registers the periodic follow-up sweep.
func NewWorker(cfg config.SchedulerConfig, sweeper Sweeper, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 5
	}

	interval := cfg.GetFollowupSweepInterval()
	if interval <= 0 {
		interval = defaultSweepInterval
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	periodic := asynq.NewScheduler(opt, &asynq.SchedulerOpts{Location: time.UTC})
	task, err := NewFollowupSweepTask(FollowupSweepPayload{Source: "periodic"})
	if err != nil {
		return nil, err
	}
	if _, err := periodic.Register(fmt.Sprintf("@every %s", interval), task, asynq.Queue(queue)); err != nil {
		return nil, fmt.Errorf("register followup sweep: %w", err)
	}

	w := newWorker(sweeper, log)
	w.server = server
	w.scheduler = periodic
	return w, nil
}

func newWorker(sweeper Sweeper, log *logger.Logger) *Worker {
	mux := asynq.NewServeMux()
	w := &Worker{
		mux:     mux,
		sweeper: sweeper,
		log:     log,
		now:     time.Now,
	}

	mux.HandleFunc(TaskFollowupSweep, w.handleFollowupSweep)
	return w
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	if w.scheduler != nil {
		if err := w.scheduler.Start(); err != nil {
			w.log.Error("periodic scheduler failed to start", "error", err)
		}
	}

	go func() {
		<-ctx.Done()
		if w.scheduler != nil {
			w.scheduler.Shutdown()
		}
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleFollowupSweep(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseFollowupSweepPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	sent, err := w.sweeper.Sweep(ctx, w.now())
	if err != nil {
		return err
	}

	w.log.Info("followup sweep complete", "sent", sent, "source", payload.Source)
	return nil
}
