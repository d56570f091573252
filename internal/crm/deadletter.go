package crm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"lead_pipeline_backend/internal/events"
	"lead_pipeline_backend/platform/logger"

	"github.com/google/uuid"
)

// DeadLetterSink receives jobs that exhausted their attempts. Sinks must not fail the caller.
type DeadLetterSink interface {
	DeadLetter(ctx context.Context, job Job, err error)
}

// DeadLetterRecord is the archived form of a dead-lettered job.
type DeadLetterRecord struct {
	JobID          uuid.UUID `json:"jobId"`
	LeadID         uuid.UUID `json:"leadId"`
	Attempts       int       `json:"attempts"`
	Error          string    `json:"error"`
	DeadLetteredAt time.Time `json:"deadLetteredAt"`
	Job            Job       `json:"job"`
}

func newRecord(job Job, err error) DeadLetterRecord {
	return DeadLetterRecord{
		JobID:          job.ID,
		LeadID:         job.LeadID,
		Attempts:       job.Attempt,
		Error:          err.Error(),
		DeadLetteredAt: time.Now().UTC(),
		Job:            job,
	}
}

// LogSink logs the full lead payload for manual recovery.
type LogSink struct {
	log *logger.Logger
}

func NewLogSink(log *logger.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) DeadLetter(_ context.Context, job Job, err error) {
	s.log.Error("crm job dead-lettered",
		"jobId", job.ID,
		"leadId", job.LeadID,
		"attempts", job.Attempt,
		"error", err,
		"lead", job.Lead,
	)
}

// ObjectArchiver stores a blob under a key.
type ObjectArchiver interface {
	Archive(ctx context.Context, key string, body []byte, contentType string) error
}

// ArchiveSink writes each dead letter as a JSON object.
type ArchiveSink struct {
	archiver ObjectArchiver
	log      *logger.Logger
}

func NewArchiveSink(archiver ObjectArchiver, log *logger.Logger) *ArchiveSink {
	return &ArchiveSink{archiver: archiver, log: log}
}

func (s *ArchiveSink) DeadLetter(ctx context.Context, job Job, err error) {
	record := newRecord(job, err)
	body, marshalErr := json.Marshal(record)
	if marshalErr != nil {
		s.log.Error("failed to encode dead letter", "jobId", job.ID, "error", marshalErr)
		return
	}
	key := ArchiveKey(record)
	if archiveErr := s.archiver.Archive(ctx, key, body, "application/json"); archiveErr != nil {
		s.log.Error("failed to archive dead letter", "jobId", job.ID, "key", key, "error", archiveErr)
		return
	}
	s.log.Info("dead letter archived", "jobId", job.ID, "key", key)
}

// ArchivePrefix is the key prefix shared by every archived dead letter.
const ArchivePrefix = "dead-letters/"

// ArchiveKey partitions archived dead letters by day.
func ArchiveKey(r DeadLetterRecord) string {
	return fmt.Sprintf("%s%s/%s.json", ArchivePrefix, r.DeadLetteredAt.Format("2006/01/02"), r.JobID)
}

// EventSink publishes a CRMDeliveryDeadLettered event.
type EventSink struct {
	bus events.Bus
}

func NewEventSink(bus events.Bus) *EventSink {
	return &EventSink{bus: bus}
}

func (s *EventSink) DeadLetter(ctx context.Context, job Job, err error) {
	s.bus.Publish(ctx, events.CRMDeliveryDeadLettered{
		BaseEvent: events.NewBaseEvent(),
		JobID:     job.ID,
		LeadID:    job.LeadID,
		Attempts:  job.Attempt,
		Error:     err.Error(),
		Lead:      job.Lead,
	})
}

// MultiSink fans out to every sink in order.
type MultiSink []DeadLetterSink

func (m MultiSink) DeadLetter(ctx context.Context, job Job, err error) {
	for _, sink := range m {
		if sink != nil {
			sink.DeadLetter(ctx, job, err)
		}
	}
}
