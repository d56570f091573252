// Package notification provides event handlers for sending notifications
// in response to domain events.
// This module subscribes to events and inverts the dependency: the lead
// pipeline never needs to know about SMTP or templates.
package notification

import (
	"context"
	"fmt"
	"strings"

	"lead_pipeline_backend/internal/email"
	"lead_pipeline_backend/internal/events"
	"lead_pipeline_backend/platform/config"
	"lead_pipeline_backend/platform/logger"
)

// Module handles notification-related domain events.
type Module struct {
	sender email.Sender
	cfg    config.NotificationConfig
	log    *logger.Logger
}

// New creates a new notification module.
func New(sender email.Sender, cfg config.NotificationConfig, log *logger.Logger) *Module {
	return &Module{
		sender: sender,
		cfg:    cfg,
		log:    log,
	}
}

// RegisterHandlers subscribes to all relevant domain events on the event bus.
func (m *Module) RegisterHandlers(bus events.Bus) {
	// Lead events
	bus.Subscribe(events.LeadCaptured{}.EventName(), m)

	// CRM events
	bus.Subscribe(events.CRMDeliveryDeadLettered{}.EventName(), m)
}

// Handle routes events to the appropriate handler.
// Failures are logged and swallowed: a notification never affects the
// outcome of the request that produced the event.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.LeadCaptured:
		m.handleLeadCaptured(ctx, e)
	case events.CRMDeliveryDeadLettered:
		m.handleCRMDeliveryDeadLettered(ctx, e)
	default:
		m.log.Warn("unhandled event type", "event", event.EventName())
	}
	return nil
}

func (m *Module) handleLeadCaptured(ctx context.Context, e events.LeadCaptured) {
	to := m.cfg.GetEmailTo()
	if to == "" {
		m.log.Warn("lead notification skipped, EMAIL_TO not set", "leadId", e.LeadID)
		return
	}

	if err := m.sender.SendLeadNotification(ctx, to, e.Lead); err != nil {
		m.log.Error("lead notification failed", "leadId", e.LeadID, "to", to, "error", err)
		return
	}
	m.log.LeadStage("notified", "leadId", e.LeadID, "to", to, "cc", e.Lead.AgentEmail())
}

func (m *Module) handleCRMDeliveryDeadLettered(ctx context.Context, e events.CRMDeliveryDeadLettered) {
	to := m.cfg.GetOpsAlertEmail()
	if to == "" {
		return
	}

	subject := fmt.Sprintf("[CRM delivery failed] %s", email.LeadSubject(e.Lead))
	var body strings.Builder
	fmt.Fprintf(&body, "CRM delivery gave up after %d attempts.\n", e.Attempts)
	fmt.Fprintf(&body, "Job: %s\nLead: %s\nError: %s\n\n", e.JobID, e.LeadID, e.Error)
	body.WriteString(email.RenderLeadText(e.Lead))

	if err := m.sender.SendText(ctx, to, subject, body.String()); err != nil {
		m.log.Error("dead letter alert failed", "jobId", e.JobID, "to", to, "error", err)
	}
}
