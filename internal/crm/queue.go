package crm

import (
	"context"
	"errors"
	"sync"
	"time"

	"lead_pipeline_backend/internal/leads/domain"
	"lead_pipeline_backend/platform/logger"

	"github.com/google/uuid"
)

// MaxAttempts bounds delivery attempts per job.
const MaxAttempts = 5

const baseBackoff = time.Second

var ErrQueueClosed = errors.New("crm queue closed")

// JobState is the delivery state of a job.
type JobState string

const (
	JobPending      JobState = "pending"
	JobAttempting   JobState = "attempting"
	JobRetrying     JobState = "retrying"
	JobSucceeded    JobState = "succeeded"
	JobDeadLettered JobState = "dead_lettered"
)

// Job is one lead delivery. LeadID is uuid.Nil when the lead was not persisted.
type Job struct {
	ID         uuid.UUID   `json:"id"`
	Attempt    int         `json:"attempt"`
	LeadID     uuid.UUID   `json:"leadId"`
	Lead       domain.Lead `json:"lead"`
	State      JobState    `json:"state"`
	LastError  string      `json:"lastError,omitempty"`
	EnqueuedAt time.Time   `json:"enqueuedAt"`
}

// Backoff returns the delay before the next attempt, 1s * 2^attempt,
// where attempt is the already incremented failure count.
func Backoff(attempt int) time.Duration {
	return baseBackoff << attempt
}

// StateStore is the idempotency guard and outcome recorder.
type StateStore interface {
	GetCRMState(ctx context.Context, id uuid.UUID) (domain.CRMState, error)
	MarkCRMCreated(ctx context.Context, id uuid.UUID, provider, crmLeadID string) error
	MarkCRMFailed(ctx context.Context, id uuid.UUID, provider, message string) error
}

// Timer is a pending retry.
type Timer interface {
	Stop() bool
}

// Scheduler runs f after d. Tests substitute a manual scheduler.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Stats is a point-in-time view of the queue.
type Stats struct {
	Pending      int   `json:"pending"`
	Retrying     int   `json:"retrying"`
	Draining     bool  `json:"draining"`
	Succeeded    int64 `json:"succeeded"`
	Skipped      int64 `json:"skipped"`
	Failures     int64 `json:"failures"`
	DeadLettered int64 `json:"deadLettered"`
}

type scheduledRetry struct {
	timer Timer
	job   *Job
}

// Queue is an in-process delivery queue drained by a single worker loop.
// Enqueue while draining only appends; the active loop picks the job up.
type Queue struct {
	provider Provider
	store    StateStore
	sink     DeadLetterSink
	sched    Scheduler
	log      *logger.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	pending  []*Job
	draining bool
	closed   bool
	retries  map[uuid.UUID]scheduledRetry
	stats    Stats
	drainWG  sync.WaitGroup
}

// Option configures a Queue.
type Option func(*Queue)

// WithScheduler replaces the timer used for retries.
func WithScheduler(s Scheduler) Option {
	return func(q *Queue) { q.sched = s }
}

// NewQueue creates a delivery queue. store may be nil when persistence is unavailable.
func NewQueue(provider Provider, store StateStore, sink DeadLetterSink, log *logger.Logger, opts ...Option) *Queue {
	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		provider: provider,
		store:    store,
		sink:     sink,
		sched:    realScheduler{},
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
		retries:  make(map[uuid.UUID]scheduledRetry),
	}
	for _, opt := range opts {
		opt(q)
	}
	if q.sink == nil {
		q.sink = NewLogSink(log)
	}
	return q
}

// Enqueue appends a delivery job and starts the drain loop if idle.
func (q *Queue) Enqueue(leadID uuid.UUID, lead domain.Lead) (uuid.UUID, error) {
	job := &Job{
		ID:         uuid.New(),
		LeadID:     leadID,
		Lead:       lead,
		State:      JobPending,
		EnqueuedAt: time.Now().UTC(),
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return uuid.Nil, ErrQueueClosed
	}
	q.pushLocked(job)
	q.log.Info("crm job enqueued", "jobId", job.ID, "leadId", leadID)
	return job.ID, nil
}

// pushLocked requires q.mu.
func (q *Queue) pushLocked(job *Job) {
	job.State = JobPending
	q.pending = append(q.pending, job)
	if q.draining {
		return
	}
	q.draining = true
	q.drainWG.Add(1)
	go q.drain()
}

func (q *Queue) drain() {
	defer q.drainWG.Done()
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.draining = false
			q.mu.Unlock()
			return
		}
		job := q.pending[0]
		q.pending[0] = nil
		q.pending = q.pending[1:]
		q.mu.Unlock()

		q.process(job)
	}
}

func (q *Queue) process(job *Job) {
	job.State = JobAttempting
	ctx := q.ctx

	if job.LeadID != uuid.Nil && q.store != nil {
		state, err := q.store.GetCRMState(ctx, job.LeadID)
		if err != nil {
			q.fail(job, err)
			return
		}
		if state.Delivered() {
			job.State = JobSucceeded
			q.bump(func(s *Stats) { s.Skipped++ })
			q.log.Info("crm push skipped, lead already delivered", "jobId", job.ID, "leadId", job.LeadID, "crmLeadId", state.LeadID)
			return
		}
	}

	res, err := q.provider.PushLead(ctx, job.Lead)
	if err != nil {
		q.fail(job, err)
		return
	}

	job.State = JobSucceeded
	q.bump(func(s *Stats) { s.Succeeded++ })
	q.log.Info("crm push succeeded", "jobId", job.ID, "leadId", job.LeadID, "crmLeadId", res.ID, "attempt", job.Attempt+1)

	if job.LeadID != uuid.Nil && q.store != nil {
		if err := q.store.MarkCRMCreated(ctx, job.LeadID, q.provider.Name(), res.ID); err != nil {
			q.log.DatabaseError("mark crm created", err)
		}
	}
}

func (q *Queue) fail(job *Job, err error) {
	job.Attempt++
	job.LastError = err.Error()
	q.bump(func(s *Stats) { s.Failures++ })
	q.log.Warn("crm push failed", "jobId", job.ID, "leadId", job.LeadID, "attempt", job.Attempt, "error", err)

	if job.Attempt >= MaxAttempts {
		q.deadLetter(job, err)
		return
	}

	delay := Backoff(job.Attempt)
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.deadLetter(job, ErrQueueClosed)
		return
	}
	job.State = JobRetrying
	timer := q.sched.AfterFunc(delay, func() { q.requeue(job.ID) })
	q.retries[job.ID] = scheduledRetry{timer: timer, job: job}
	q.mu.Unlock()

	q.log.Info("crm push retry scheduled", "jobId", job.ID, "attempt", job.Attempt, "delay", delay)
}

// requeue only acts if the retry is still owned by the queue; Close takes
// ownership of outstanding retries.
func (q *Queue) requeue(jobID uuid.UUID) {
	q.mu.Lock()
	defer q.mu.Unlock()
	retry, ok := q.retries[jobID]
	if !ok {
		return
	}
	delete(q.retries, jobID)
	q.pushLocked(retry.job)
}

func (q *Queue) deadLetter(job *Job, err error) {
	job.State = JobDeadLettered
	q.bump(func(s *Stats) { s.DeadLettered++ })

	ctx := context.WithoutCancel(q.ctx)
	if job.LeadID != uuid.Nil && q.store != nil {
		if markErr := q.store.MarkCRMFailed(ctx, job.LeadID, q.provider.Name(), err.Error()); markErr != nil {
			q.log.DatabaseError("mark crm failed", markErr)
		}
	}
	q.sink.DeadLetter(ctx, *job, err)
}

func (q *Queue) bump(fn func(*Stats)) {
	q.mu.Lock()
	fn(&q.stats)
	q.mu.Unlock()
}

// Snapshot returns current queue counters.
func (q *Queue) Snapshot() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	s := q.stats
	s.Pending = len(q.pending)
	s.Retrying = len(q.retries)
	s.Draining = q.draining
	return s
}

// Close stops accepting jobs, waits for the drain loop, and dead-letters
// retries that had not fired yet so they can be recovered manually.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	orphans := make([]*Job, 0, len(q.retries))
	for id, retry := range q.retries {
		retry.timer.Stop()
		orphans = append(orphans, retry.job)
		delete(q.retries, id)
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.drainWG.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	q.cancel()
	<-done

	for _, job := range orphans {
		q.deadLetter(job, ErrQueueClosed)
	}
	return err
}
