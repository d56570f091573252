package domain

// FollowupType identifies a reminder in the follow-up schedule.
type FollowupType string

const (
	FollowupOneHour FollowupType = "t1h"
	FollowupOneDay  FollowupType = "t24h"
)

// FollowupEntry is a planned or sent reminder. At is an ISO-8601 UTC
// timestamp with millisecond precision so string order is time order.
type FollowupEntry struct {
	Type     FollowupType `json:"type"`
	At       string       `json:"at"`
	Attempts int          `json:"attempts,omitempty"`
}

// FollowupSchedule is persisted as the lead's followup_state.
type FollowupSchedule struct {
	Scheduled []FollowupEntry `json:"scheduled"`
	Sent      []FollowupEntry `json:"sent"`
	// Failed holds reminders dropped after repeated send failures.
	Failed    []FollowupEntry `json:"failed,omitempty"`
}
