package followups

import (
	"strings"

	"lead_pipeline_backend/internal/leads/domain"
)

const signature = "\n\nBest,\nCrown Coastal Homes"

// Message is a rendered reminder.
type Message struct {
	Subject string
	Text    string
}

// Template renders the reminder for a schedule entry type. Only the lead's
// first name and property id are used.
func Template(kind domain.FollowupType, lead domain.Lead) Message {
	name := greetingName(lead)

	if kind == domain.FollowupOneHour {
		about := "homes in the area"
		if lead.PropertyID != "" {
			about = "the property (ID " + lead.PropertyID + ")"
		}
		return Message{
			Subject: "Thanks for reaching out — tour availability",
			Text: "Hi " + name + ",\n\nThanks for reaching out about " + about +
				". When would you like to tour? We can usually accommodate within 24–48 hours." + signature,
		}
	}

	return Message{
		Subject: "Still interested? Next steps & comps",
		Text: "Hi " + name + ",\n\nJust checking in — are you still interested? We can prepare comps and next steps for you. " +
			"Would you like us to send a quick overview?" + signature,
	}
}

func greetingName(lead domain.Lead) string {
	name := lead.FullName
	if name == "" {
		name = lead.FirstName
	}
	if name == "" {
		name = "there"
	}
	return strings.Split(name, " ")[0]
}

// InternalTemplate renders a reminder for the sales inbox when the lead left
// no email address. It asks the team to reach out instead of addressing the lead.
func InternalTemplate(kind domain.FollowupType, lead domain.Lead) Message {
	name := lead.DisplayName()
	if name == "" {
		name = "Unnamed lead"
	}

	step := "first follow-up (1h)"
	if kind == domain.FollowupOneDay {
		step = "second follow-up (24h)"
	}

	var b strings.Builder
	b.WriteString("Internal reminder: " + step + " is due for " + name + ".\n")
	b.WriteString("This lead has no email address, so please follow up by phone or SMS.\n\n")
	b.WriteString("Lead ID: " + lead.ID.String() + "\n")
	b.WriteString("Phone: " + or(lead.Phone, "not provided") + "\n")
	b.WriteString("City: " + or(lead.City, "Unknown") + "\n")
	if lead.PropertyID != "" {
		b.WriteString("Property: " + lead.PropertyID + "\n")
	}

	return Message{
		Subject: "[Follow-up due] " + name + " (" + string(kind) + ")",
		Text:    b.String(),
	}
}

func or(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
