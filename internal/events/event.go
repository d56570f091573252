// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"lead_pipeline_backend/internal/leads/domain"
	"lead_pipeline_backend/platform/events"
	"lead_pipeline_backend/platform/logger"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// InMemoryBus is the process-local bus used by both binaries.
type InMemoryBus = events.InMemoryBus

var NewBaseEvent = events.NewBaseEvent

// NewInMemoryBus creates the process-local bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return events.NewInMemoryBus(log)
}

// =============================================================================
// Lead Domain Events
// =============================================================================

// LeadCaptured is published once a submission has passed validation and
// the pipeline has scored, assigned and attempted to persist it.
type LeadCaptured struct {
	BaseEvent
	LeadID    uuid.UUID   `json:"leadId"`
	Persisted bool        `json:"persisted"`
	Lead      domain.Lead `json:"lead"`
}

func (e LeadCaptured) EventName() string { return "leads.lead.captured" }

// =============================================================================
// CRM Domain Events
// =============================================================================

// CRMDeliveryDeadLettered is published when a delivery job exhausts its attempts.
type CRMDeliveryDeadLettered struct {
	BaseEvent
	JobID    uuid.UUID   `json:"jobId"`
	LeadID   uuid.UUID   `json:"leadId"`
	Attempts int         `json:"attempts"`
	Error    string      `json:"error"`
	Lead     domain.Lead `json:"lead"`
}

func (e CRMDeliveryDeadLettered) EventName() string { return "crm.delivery.dead_lettered" }
