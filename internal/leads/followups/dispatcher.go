package followups

import (
	"context"
	"time"

	"lead_pipeline_backend/internal/leads/domain"
	"lead_pipeline_backend/internal/leads/repository"
	"lead_pipeline_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	defaultBatchSize = 200
	// maxSendAttempts bounds how often one reminder is retried before it
	// moves to the failed list.
	maxSendAttempts = 5
)

// Store loads schedules with due reminders and persists the updated state.
type Store interface {
	ListDueFollowups(ctx context.Context, dueBy string, limit int) ([]repository.FollowupRow, error)
	SaveFollowups(ctx context.Context, id uuid.UUID, schedule domain.FollowupSchedule) error
}

// Sender delivers a rendered reminder.
type Sender interface {
	SendText(ctx context.Context, toEmail, subject, text string) error
}

// Dispatcher sends due reminders and moves them from scheduled to sent.
type Dispatcher struct {
	store      Store
	sender     Sender
	fallbackTo string
	batchSize  int
	log        *logger.Logger
}

// NewDispatcher creates a Dispatcher. fallbackTo is the internal inbox that
// gets a staff reminder for leads without an email address.
func NewDispatcher(store Store, sender Sender, fallbackTo string, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		store:      store,
		sender:     sender,
		fallbackTo: fallbackTo,
		batchSize:  defaultBatchSize,
		log:        log,
	}
}

// Sweep processes one batch of leads with due reminders and returns the
// number of reminders sent. A failed send stays scheduled until it has
// failed maxSendAttempts times.
func (d *Dispatcher) Sweep(ctx context.Context, now time.Time) (int, error) {
	rows, err := d.store.ListDueFollowups(ctx, FormatTime(now), d.batchSize)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		schedule, n, changed := d.dispatchRow(ctx, row, now)
		sent += n
		if !changed {
			continue
		}
		if err := d.store.SaveFollowups(ctx, row.Lead.ID, schedule); err != nil {
			d.log.Error("failed to persist follow-up state", "leadId", row.Lead.ID, "error", err)
		}
	}

	if sent > 0 {
		d.log.Info("follow-up sweep complete", "sent", sent, "rows", len(rows))
	}
	return sent, nil
}

func (d *Dispatcher) dispatchRow(ctx context.Context, row repository.FollowupRow, now time.Time) (domain.FollowupSchedule, int, bool) {
	due, remaining := Due(row.Schedule, now)
	if len(due) == 0 {
		return row.Schedule, 0, false
	}

	to, render := row.Lead.Email, Template
	if to == "" {
		to, render = d.fallbackTo, InternalTemplate
	}
	if to == "" {
		d.log.Warn("follow-up due but no recipient configured", "leadId", row.Lead.ID)
		return row.Schedule, 0, false
	}

	sentEntries := append([]domain.FollowupEntry{}, row.Schedule.Sent...)
	failed := append([]domain.FollowupEntry{}, row.Schedule.Failed...)

	sent := 0
	for _, entry := range due {
		msg := render(entry.Type, row.Lead)
		if err := d.sender.SendText(ctx, to, msg.Subject, msg.Text); err != nil {
			entry.Attempts++
			if entry.Attempts >= maxSendAttempts {
				d.log.Error("follow-up dropped after repeated failures",
					"leadId", row.Lead.ID, "type", entry.Type, "attempts", entry.Attempts, "error", err)
				failed = append(failed, entry)
				continue
			}
			d.log.Warn("follow-up send failed", "leadId", row.Lead.ID, "type", entry.Type, "attempts", entry.Attempts, "error", err)
			remaining = append(remaining, entry)
			continue
		}
		sent++
		sentEntries = append(sentEntries, domain.FollowupEntry{Type: entry.Type, At: FormatTime(now)})
	}

	schedule := domain.FollowupSchedule{Scheduled: remaining, Sent: sentEntries}
	if len(failed) > 0 {
		schedule.Failed = failed
	}
	return schedule, sent, true
}
