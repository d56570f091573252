package notification

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"lead_pipeline_backend/internal/events"
	"lead_pipeline_backend/internal/leads/domain"
	"lead_pipeline_backend/platform/logger"

	"github.com/google/uuid"
)

type testNotificationConfig struct {
	to  string
	ops string
}

func (c testNotificationConfig) GetEmailTo() string       { return c.to }
func (c testNotificationConfig) GetOpsAlertEmail() string { return c.ops }

type sentMessage struct {
	to      string
	subject string
	text    string
	lead    domain.Lead
}

type testSender struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (s *testSender) SendLeadNotification(_ context.Context, to string, lead domain.Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sentMessage{to: to, lead: lead})
	return s.err
}

func (s *testSender) SendText(_ context.Context, to, subject, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sentMessage{to: to, subject: subject, text: text})
	return s.err
}

const testLeadEmail = "lead@example.com"

func capturedEvent() events.LeadCaptured {
	return events.LeadCaptured{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    uuid.New(),
		Persisted: true,
		Lead: domain.Lead{
			FullName:      "Jane Doe",
			Email:         testLeadEmail,
			City:          "Carlsbad",
			AssignedAgent: &domain.AssignedAgent{Name: "Avery", Email: "avery@example.com"},
		},
	}
}

func TestLeadCapturedSendsToConfiguredRecipient(t *testing.T) {
	sender := &testSender{}
	bus := events.NewInMemoryBus(logger.Discard())
	New(sender, testNotificationConfig{to: "leads@example.com"}, logger.Discard()).RegisterHandlers(bus)

	bus.Publish(context.Background(), capturedEvent())
	bus.Wait()

	if len(sender.sent) != 1 {
		t.Fatalf("expected one notification, got %d", len(sender.sent))
	}
	if sender.sent[0].to != "leads@example.com" || sender.sent[0].lead.Email != testLeadEmail {
		t.Fatalf("unexpected notification %+v", sender.sent[0])
	}
}

func TestLeadCapturedSendFailureIsSwallowed(t *testing.T) {
	sender := &testSender{err: errors.New("smtp down")}
	m := New(sender, testNotificationConfig{to: "leads@example.com"}, logger.Discard())

	if err := m.Handle(context.Background(), capturedEvent()); err != nil {
		t.Fatalf("expected notification errors to be swallowed, got %v", err)
	}
}

func TestLeadCapturedWithoutRecipientSkips(t *testing.T) {
	sender := &testSender{}
	m := New(sender, testNotificationConfig{}, logger.Discard())

	_ = m.Handle(context.Background(), capturedEvent())
	if len(sender.sent) != 0 {
		t.Fatalf("expected no send without EMAIL_TO, got %d", len(sender.sent))
	}
}

func TestDeadLetterAlert(t *testing.T) {
	sender := &testSender{}
	m := New(sender, testNotificationConfig{to: "leads@example.com", ops: "ops@example.com"}, logger.Discard())

	e := events.CRMDeliveryDeadLettered{
		BaseEvent: events.NewBaseEvent(),
		JobID:     uuid.New(),
		LeadID:    uuid.New(),
		Attempts:  5,
		Error:     "lofty push failed: 500",
		Lead:      capturedEvent().Lead,
	}
	_ = m.Handle(context.Background(), e)

	if len(sender.sent) != 1 {
		t.Fatalf("expected one alert, got %d", len(sender.sent))
	}
	msg := sender.sent[0]
	if msg.to != "ops@example.com" || !strings.HasPrefix(msg.subject, "[CRM delivery failed]") {
		t.Fatalf("unexpected alert %+v", msg)
	}
	if !strings.Contains(msg.text, "after 5 attempts") || !strings.Contains(msg.text, testLeadEmail) {
		t.Fatalf("alert body missing details:\n%s", msg.text)
	}
}

func TestDeadLetterAlertDisabledWithoutOpsRecipient(t *testing.T) {
	sender := &testSender{}
	m := New(sender, testNotificationConfig{to: "leads@example.com"}, logger.Discard())

	_ = m.Handle(context.Background(), events.CRMDeliveryDeadLettered{BaseEvent: events.NewBaseEvent()})
	if len(sender.sent) != 0 {
		t.Fatalf("expected no alert, got %d", len(sender.sent))
	}
}
