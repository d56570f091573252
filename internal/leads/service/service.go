// Package service runs the lead submission pipeline: parse, attribute,
// score and assign, persist, then hand off CRM delivery and notification.
package service

import (
	"context"
	"errors"
	"time"

	"lead_pipeline_backend/internal/events"
	"lead_pipeline_backend/internal/leads/attribution"
	"lead_pipeline_backend/internal/leads/domain"
	"lead_pipeline_backend/internal/leads/followups"
	"lead_pipeline_backend/internal/leads/intake"
	"lead_pipeline_backend/internal/leads/repository"
	"lead_pipeline_backend/internal/leads/scoring"
	"lead_pipeline_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Assigner routes a lead to an agent.
type Assigner interface {
	Assign(ctx context.Context, lead domain.Lead) domain.AssignedAgent
}

// Store is the subset of the repository the pipeline writes through.
type Store interface {
	Upsert(ctx context.Context, lead domain.Lead) (repository.UpsertResult, error)
	SaveFollowups(ctx context.Context, id uuid.UUID, schedule domain.FollowupSchedule) error
}

// CRMQueue accepts delivery jobs. A nil CRMQueue disables delivery.
type CRMQueue interface {
	Enqueue(leadID uuid.UUID, lead domain.Lead) (uuid.UUID, error)
}

// CRMRef identifies the external record for a lead.
type CRMRef struct {
	Provider string
	ID       string
}

// SubmitResult is the outcome of a single submission.
type SubmitResult struct {
	Outcome   intake.Outcome
	LeadID    uuid.UUID
	Persisted bool
	Lead      domain.Lead
	Score     scoring.Result
	CRM       *CRMRef
	CRMJobID  uuid.UUID
	CRMError  string
}

// Service is the pipeline composition root for a single process.
type Service struct {
	parser   *intake.Parser
	assigner Assigner
	store    Store
	queue    CRMQueue
	bus      events.Bus
	log      *logger.Logger
	now      func() time.Time
}

// New creates the pipeline service. queue may be nil when no CRM provider is configured.
func New(parser *intake.Parser, assigner Assigner, store Store, queue CRMQueue, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		parser:   parser,
		assigner: assigner,
		store:    store,
		queue:    queue,
		bus:      bus,
		log:      log,
		now:      time.Now,
	}
}

// Submit runs the pipeline for one raw JSON body. The only errors returned
// are the parser's rejections (validation and bot-suspected); every later
// stage is isolated and degrades to a logged failure.
func (s *Service) Submit(ctx context.Context, raw []byte, fb attribution.RequestFallbacks) (SubmitResult, error) {
	parsed := s.parser.Parse(raw)
	switch parsed.Outcome {
	case intake.OutcomeInvalid:
		s.log.LeadStage("rejected", "reason", parsed.Outcome.String(), "error", errors.Unwrap(parsed.Err), "ip", fb.IP)
		return SubmitResult{Outcome: parsed.Outcome}, parsed.Err
	case intake.OutcomeHoneypot:
		s.log.LeadStage("dropped", "reason", parsed.Outcome.String(), "ip", fb.IP)
		return SubmitResult{Outcome: parsed.Outcome}, nil
	case intake.OutcomeBotSuspected:
		s.log.LeadStage("dropped", "reason", parsed.Outcome.String(), "ip", fb.IP)
		return SubmitResult{Outcome: parsed.Outcome}, parsed.Err
	}

	return s.process(ctx, parsed.Lead, fb), nil
}

// Ingest runs the pipeline for a lead that arrived over an authenticated
// channel. The browser anti-bot checks do not apply, so the caller is
// responsible for sanitizing the lead.
func (s *Service) Ingest(ctx context.Context, lead domain.Lead, fb attribution.RequestFallbacks) SubmitResult {
	return s.process(ctx, lead, fb)
}

func (s *Service) process(ctx context.Context, lead domain.Lead, fb attribution.RequestFallbacks) SubmitResult {
	lead = attribution.Apply(attribution.MergeRequest(lead, fb))
	result := SubmitResult{Outcome: intake.OutcomeAccepted}

	score, agent := s.scoreAndAssign(ctx, lead)
	lead.Score = score.Score
	lead.AssignedAgent = &agent
	result.Score = score
	s.log.LeadStage("scored", "score", score.Score, "priority", score.Priority, "agent", agent.Name)

	upserted, persisted := s.persist(ctx, lead)
	if persisted {
		lead.ID = upserted.ID
		result.LeadID = upserted.ID
		result.Persisted = true
		if upserted.Inserted {
			s.scheduleFollowups(ctx, upserted.ID)
		}
	}
	result.Lead = lead

	s.deliver(&result, upserted)

	s.bus.Publish(ctx, events.LeadCaptured{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    result.LeadID,
		Persisted: result.Persisted,
		Lead:      lead,
	})

	return result
}

// Stats exposes the parser outcome counters.
func (s *Service) Stats() intake.Stats {
	return s.parser.Stats()
}

func (s *Service) scoreAndAssign(ctx context.Context, lead domain.Lead) (scoring.Result, domain.AssignedAgent) {
	var (
		score scoring.Result
		agent domain.AssignedAgent
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		score = scoring.Breakdown(lead)
		return nil
	})
	g.Go(func() error {
		agent = s.assigner.Assign(gctx, lead)
		return nil
	})
	_ = g.Wait()

	return score, agent
}

func (s *Service) persist(ctx context.Context, lead domain.Lead) (repository.UpsertResult, bool) {
	if s.store == nil {
		return repository.UpsertResult{}, false
	}

	res, err := s.store.Upsert(ctx, lead)
	if err != nil {
		s.log.DatabaseError("upsert lead", err)
		return repository.UpsertResult{}, false
	}

	s.log.LeadStage("persisted", "leadId", res.ID, "inserted", res.Inserted)
	return res, true
}

func (s *Service) scheduleFollowups(ctx context.Context, id uuid.UUID) {
	if err := s.store.SaveFollowups(ctx, id, followups.ScheduleDefault(s.now())); err != nil {
		s.log.DatabaseError("save followups", err)
	}
}

// deliver reuses an existing CRM record when the row already has one, and
// otherwise queues a delivery job.
func (s *Service) deliver(result *SubmitResult, upserted repository.UpsertResult) {
	if upserted.CRM.Delivered() {
		result.CRM = &CRMRef{Provider: upserted.CRM.Provider, ID: upserted.CRM.LeadID}
		s.log.LeadStage("crm_reused", "leadId", result.LeadID, "crmLeadId", upserted.CRM.LeadID)
		return
	}

	if upserted.CRM.Status == domain.CRMStatusFailed {
		result.CRMError = upserted.CRM.Error
	}

	if s.queue == nil {
		return
	}

	jobID, err := s.queue.Enqueue(result.LeadID, result.Lead)
	if err != nil {
		result.CRMError = err.Error()
		s.log.Error("crm enqueue failed", "leadId", result.LeadID, "error", err)
		return
	}
	result.CRMJobID = jobID
	s.log.LeadStage("crm_enqueued", "leadId", result.LeadID, "jobId", jobID)
}
