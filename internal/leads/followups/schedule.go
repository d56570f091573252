// Package followups computes, renders and dispatches timed lead reminders.
package followups

import (
	"time"

	"lead_pipeline_backend/internal/leads/domain"
)

// isoMillis matches JavaScript's Date.toISOString so stored timestamps
// compare lexicographically in time order.
const isoMillis = "2006-01-02T15:04:05.000Z"

// FormatTime renders t as an ISO-8601 UTC timestamp with millisecond precision.
func FormatTime(t time.Time) string {
	return t.UTC().Format(isoMillis)
}

// ScheduleDefault returns the t1h and t24h reminders with an empty sent list.
func ScheduleDefault(now time.Time) domain.FollowupSchedule {
	return domain.FollowupSchedule{
		Scheduled: []domain.FollowupEntry{
			{Type: domain.FollowupOneHour, At: FormatTime(now.Add(time.Hour))},
			{Type: domain.FollowupOneDay, At: FormatTime(now.Add(24 * time.Hour))},
		},
		Sent: []domain.FollowupEntry{},
	}
}

// Due partitions scheduled entries into those at or before now and the rest.
func Due(schedule domain.FollowupSchedule, now time.Time) (due, remaining []domain.FollowupEntry) {
	nowISO := FormatTime(now)
	due = make([]domain.FollowupEntry, 0, len(schedule.Scheduled))
	remaining = make([]domain.FollowupEntry, 0, len(schedule.Scheduled))
	for _, entry := range schedule.Scheduled {
		if entry.At <= nowISO {
			due = append(due, entry)
		} else {
			remaining = append(remaining, entry)
		}
	}
	return due, remaining
}
