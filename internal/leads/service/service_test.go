package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"lead_pipeline_backend/internal/events"
	"lead_pipeline_backend/internal/leads/attribution"
	"lead_pipeline_backend/internal/leads/domain"
	"lead_pipeline_backend/internal/leads/intake"
	"lead_pipeline_backend/internal/leads/repository"
	"lead_pipeline_backend/platform/apperr"
	"lead_pipeline_backend/platform/logger"
	"lead_pipeline_backend/platform/validator"

	"github.com/google/uuid"
)

const validBody = `{
	"fullName": "Jane Doe",
	"email": "jane@example.com",
	"phone": "(619) 555-0143",
	"message": "` + "xxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxx" + `",
	"city": "SD",
	"state": "CA",
	"propertyId": "MLS-42",
	"wantsTour": true,
	"__top": 25000
}`

type fakeAssigner struct{ agent domain.AssignedAgent }

func (a fakeAssigner) Assign(context.Context, domain.Lead) domain.AssignedAgent { return a.agent }

type storedRow struct {
	id        uuid.UUID
	lead      domain.Lead
	crm       domain.CRMState
	followups *domain.FollowupSchedule
}

// fakeStore mimics the ON CONFLICT (email, message, property_id) upsert.
type fakeStore struct {
	mu        sync.Mutex
	rows      map[string]*storedRow
	upsertErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: map[string]*storedRow{}}
}

func naturalKey(l domain.Lead) string {
	return l.Email + "\x00" + l.Message + "\x00" + l.PropertyID
}

func (s *fakeStore) Upsert(_ context.Context, lead domain.Lead) (repository.UpsertResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.upsertErr != nil {
		return repository.UpsertResult{}, s.upsertErr
	}
	key := naturalKey(lead)
	if row, ok := s.rows[key]; ok {
		row.lead = lead
		return repository.UpsertResult{ID: row.id, Inserted: false, CRM: row.crm}, nil
	}
	row := &storedRow{id: uuid.New(), lead: lead}
	s.rows[key] = row
	return repository.UpsertResult{ID: row.id, Inserted: true}, nil
}

func (s *fakeStore) SaveFollowups(_ context.Context, id uuid.UUID, schedule domain.FollowupSchedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.rows {
		if row.id == id {
			sc := schedule
			row.followups = &sc
			return nil
		}
	}
	return errors.New("row not found")
}

type fakeQueue struct {
	mu   sync.Mutex
	jobs []uuid.UUID
	err  error
}

func (q *fakeQueue) Enqueue(leadID uuid.UUID, _ domain.Lead) (uuid.UUID, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return uuid.Nil, q.err
	}
	q.jobs = append(q.jobs, leadID)
	return uuid.New(), nil
}

type harness struct {
	svc      *Service
	store    *fakeStore
	queue    *fakeQueue
	bus      *events.InMemoryBus
	mu       sync.Mutex
	captured []events.LeadCaptured
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		store: newFakeStore(),
		queue: &fakeQueue{},
		bus:   events.NewInMemoryBus(logger.Discard()),
	}
	h.bus.Subscribe(events.LeadCaptured{}.EventName(), events.HandlerFunc(func(_ context.Context, e events.Event) error {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.captured = append(h.captured, e.(events.LeadCaptured))
		return nil
	}))
	parser := intake.New(validator.New())
	h.svc = New(parser, fakeAssigner{agent: domain.AssignedAgent{Name: "Agent A", Email: "a@example.com"}}, h.store, h.queue, h.bus, logger.Discard())
	h.svc.now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	return h
}

func (h *harness) submit(t *testing.T, body string) (SubmitResult, error) {
	t.Helper()
	res, err := h.svc.Submit(context.Background(), []byte(body), attribution.RequestFallbacks{IP: "203.0.113.9"})
	h.bus.Wait()
	return res, err
}

func (h *harness) assertNoSideEffects(t *testing.T) {
	t.Helper()
	if len(h.store.rows) != 0 {
		t.Fatalf("expected no persisted rows, got %d", len(h.store.rows))
	}
	if len(h.queue.jobs) != 0 {
		t.Fatalf("expected no crm jobs, got %d", len(h.queue.jobs))
	}
	if len(h.captured) != 0 {
		t.Fatalf("expected no events, got %d", len(h.captured))
	}
}

func TestSubmitAcceptedRunsEveryStage(t *testing.T) {
	h := newHarness(t)
	res, err := h.submit(t, validBody)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Outcome != intake.OutcomeAccepted || !res.Persisted || res.LeadID == uuid.Nil {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Score.Score != 80 || res.Score.Priority != "hot" {
		t.Fatalf("expected score 80/hot, got %+v", res.Score)
	}
	if res.Lead.AssignedAgent == nil || res.Lead.AssignedAgent.Name != "Agent A" {
		t.Fatalf("expected assigned agent, got %+v", res.Lead.AssignedAgent)
	}
	if res.Lead.Source != domain.DefaultSource {
		t.Fatalf("expected default source, got %q", res.Lead.Source)
	}
	if len(h.queue.jobs) != 1 || h.queue.jobs[0] != res.LeadID {
		t.Fatalf("expected one crm job for the persisted lead, got %v", h.queue.jobs)
	}
	if len(h.captured) != 1 || h.captured[0].LeadID != res.LeadID || h.captured[0].Lead.Score != 80 {
		t.Fatalf("expected LeadCaptured event, got %+v", h.captured)
	}

	row := h.store.rows[naturalKey(res.Lead)]
	if row.followups == nil || len(row.followups.Scheduled) != 2 || row.followups.Scheduled[0].At != "2024-01-01T01:00:00.000Z" {
		t.Fatalf("expected default follow-up schedule, got %+v", row.followups)
	}
}

func TestSubmitSameLeadTwiceKeepsOneRow(t *testing.T) {
	h := newHarness(t)
	first, err := h.submit(t, validBody)
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}

	row := h.store.rows[naturalKey(first.Lead)]
	row.followups.Sent = append(row.followups.Sent, row.followups.Scheduled[0])

	second, err := h.submit(t, validBody)
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}

	if len(h.store.rows) != 1 {
		t.Fatalf("expected exactly one row, got %d", len(h.store.rows))
	}
	if first.LeadID != second.LeadID {
		t.Fatalf("expected the same lead id, got %s and %s", first.LeadID, second.LeadID)
	}
	if len(row.followups.Sent) != 1 {
		t.Fatal("expected an update not to reset the follow-up schedule")
	}
}

func TestSubmitReusesExistingCRMRecord(t *testing.T) {
	h := newHarness(t)
	first, _ := h.submit(t, validBody)
	h.store.rows[naturalKey(first.Lead)].crm = domain.CRMState{Provider: "lofty", LeadID: "98765", Status: domain.CRMStatusCreated}
	h.queue.jobs = nil

	res, err := h.submit(t, validBody)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.CRM == nil || res.CRM.ID != "98765" || res.CRM.Provider != "lofty" {
		t.Fatalf("expected existing crm reference, got %+v", res.CRM)
	}
	if len(h.queue.jobs) != 0 {
		t.Fatalf("expected no new crm job, got %d", len(h.queue.jobs))
	}
}

func TestSubmitSurfacesPreviousCRMFailure(t *testing.T) {
	h := newHarness(t)
	first, _ := h.submit(t, validBody)
	h.store.rows[naturalKey(first.Lead)].crm = domain.CRMState{Provider: "lofty", Status: domain.CRMStatusFailed, Error: "lofty push failed: 500"}

	res, _ := h.submit(t, validBody)
	if res.CRMError != "lofty push failed: 500" {
		t.Fatalf("expected previous crm error, got %q", res.CRMError)
	}
	if len(h.queue.jobs) != 2 {
		t.Fatalf("expected failed delivery to be retried, got %d jobs", len(h.queue.jobs))
	}
}

func TestSubmitHoneypotHasNoSideEffects(t *testing.T) {
	h := newHarness(t)
	body := strings.Replace(validBody, `"__top": 25000`, `"__top": 25000, "company": "Acme"`, 1)

	res, err := h.submit(t, body)
	if err != nil || res.Outcome != intake.OutcomeHoneypot {
		t.Fatalf("expected silent honeypot drop, got %+v, %v", res, err)
	}
	h.assertNoSideEffects(t)
}

func TestSubmitBotSuspectedHasNoSideEffects(t *testing.T) {
	h := newHarness(t)
	body := strings.Replace(validBody, `"__top": 25000`, `"__top": 500`, 1)

	res, err := h.submit(t, body)
	if res.Outcome != intake.OutcomeBotSuspected {
		t.Fatalf("expected bot suspected, got %s", res.Outcome)
	}
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.HTTPStatus() != http.StatusAccepted {
		t.Fatalf("expected 202 error, got %v", err)
	}
	h.assertNoSideEffects(t)
}

func TestSubmitInvalidHasNoSideEffects(t *testing.T) {
	h := newHarness(t)

	_, err := h.submit(t, `{"email": "not-an-email", "__top": 5000}`)
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.HTTPStatus() != http.StatusBadRequest {
		t.Fatalf("expected 400 error, got %v", err)
	}
	h.assertNoSideEffects(t)
}

func TestSubmitPersistenceFailureContinues(t *testing.T) {
	h := newHarness(t)
	h.store.upsertErr = errors.New("connection refused")

	res, err := h.submit(t, validBody)
	if err != nil {
		t.Fatalf("expected persistence failure to be invisible to the caller, got %v", err)
	}
	if res.Persisted || res.LeadID != uuid.Nil {
		t.Fatalf("expected unpersisted result, got %+v", res)
	}
	if len(h.captured) != 1 {
		t.Fatal("expected notification event despite persistence failure")
	}
	if len(h.queue.jobs) != 1 || h.queue.jobs[0] != uuid.Nil {
		t.Fatalf("expected crm delivery to still be attempted, got %v", h.queue.jobs)
	}
}

func TestSubmitEnqueueFailureIsReported(t *testing.T) {
	h := newHarness(t)
	h.queue.err = errors.New("crm queue closed")

	res, err := h.submit(t, validBody)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.CRMError != "crm queue closed" {
		t.Fatalf("expected enqueue error in result, got %q", res.CRMError)
	}
	if len(h.captured) != 1 {
		t.Fatal("expected notification event despite crm failure")
	}
}

func TestSubmitWithoutCRMQueue(t *testing.T) {
	h := newHarness(t)
	h.svc.queue = nil

	res, err := h.submit(t, validBody)
	if err != nil || res.CRM != nil || res.CRMError != "" {
		t.Fatalf("expected delivery to be skipped silently, got %+v, %v", res, err)
	}
}

func TestSubmitAppliesRequestAttribution(t *testing.T) {
	h := newHarness(t)
	res, err := h.svc.Submit(context.Background(), []byte(validBody), attribution.RequestFallbacks{
		Query:   map[string][]string{"utm_source": {"google"}, "gclid": {"abc"}},
		Referer: "https://www.google.com/",
	})
	h.bus.Wait()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Lead.UTMSource != "google" || res.Lead.Source != "google" || res.Lead.Gclid != "abc" {
		t.Fatalf("expected query attribution to be merged, got %+v", res.Lead)
	}
}

func TestIngestSkipsBrowserChecks(t *testing.T) {
	h := newHarness(t)
	lead := domain.Lead{Email: "ads@example.com", Phone: "+16195550143", UTMSource: "google", Tags: []string{"google-ads"}}

	res := h.svc.Ingest(context.Background(), lead, attribution.RequestFallbacks{})
	h.bus.Wait()

	if res.Outcome != intake.OutcomeAccepted || !res.Persisted {
		t.Fatalf("expected accepted persisted lead, got %+v", res)
	}
	if res.Lead.Source != "google" {
		t.Fatalf("expected source derived from utm_source, got %q", res.Lead.Source)
	}
	if len(h.queue.jobs) != 1 || len(h.captured) != 1 {
		t.Fatalf("expected delivery and notification, got %d jobs %d events", len(h.queue.jobs), len(h.captured))
	}
	if h.svc.Stats().Accepted != 0 {
		t.Fatal("expected ingest to bypass the form parser counters")
	}
}
