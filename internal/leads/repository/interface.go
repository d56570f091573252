package repository

import (
	"context"

	"lead_pipeline_backend/internal/leads/domain"

	"github.com/google/uuid"
)

// =====================================
// Segregated Interfaces (Interface Segregation Principle)
// =====================================

// LeadWriter persists leads idempotently on (email, message, property_id).
type LeadWriter interface {
	Upsert(ctx context.Context, lead domain.Lead) (UpsertResult, error)
}

// LeadReader provides read-only access to lead rows.
type LeadReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (domain.Lead, error)
}

// CRMStateStore reads and records CRM delivery state.
type CRMStateStore interface {
	GetCRMState(ctx context.Context, id uuid.UUID) (domain.CRMState, error)
	MarkCRMCreated(ctx context.Context, id uuid.UUID, provider, crmLeadID string) error
	MarkCRMFailed(ctx context.Context, id uuid.UUID, provider, message string) error
}

// FollowupStore persists reminder schedules.
type FollowupStore interface {
	SaveFollowups(ctx context.Context, id uuid.UUID, schedule domain.FollowupSchedule) error
	ListDueFollowups(ctx context.Context, dueBy string, limit int) ([]FollowupRow, error)
}

// LeadsRepository is the full persistence gateway.
type LeadsRepository interface {
	LeadWriter
	LeadReader
	CRMStateStore
	FollowupStore
}

// UpsertResult reports the persisted identity and the row's CRM state after the write.
type UpsertResult struct {
	ID       uuid.UUID
	Inserted bool
	CRM      domain.CRMState
}

// FollowupRow is a lead with a pending follow-up schedule.
type FollowupRow struct {
	Lead     domain.Lead
	Schedule domain.FollowupSchedule
}

var _ LeadsRepository = (*Repository)(nil)
