package webhook

import (
	"strings"
)

// googleColumnIDs maps Google's standard lead form column ids to field keys.
var googleColumnIDs = map[string]string{
	"FULL_NAME":      "fullName",
	"FIRST_NAME":     "firstName",
	"LAST_NAME":      "lastName",
	"EMAIL":          "email",
	"WORK_EMAIL":     "email",
	"PHONE_NUMBER":   "phone",
	"WORK_PHONE":     "phone",
	"STREET_ADDRESS": "street",
	"CITY":           "city",
	"REGION":         "state",
	"POSTAL_CODE":    "zipCode",
}

// ExtractGoogleLeadFields maps Google Lead Form data into a flat map for generic extraction.
func ExtractGoogleLeadFields(payload GoogleLeadPayload) map[string]string {
	fields := make(map[string]string)

	for _, col := range payload.UserColumnData {
		key := normalizeGoogleFieldName(col)
		if key != "" && col.StringValue != "" {
			fields[key] = col.StringValue
		}
	}

	return fields
}

// normalizeGoogleFieldName prefers the standard column id and falls back to
// the question label for custom questions.
func normalizeGoogleFieldName(col GoogleColumnData) string {
	if key, ok := googleColumnIDs[strings.ToUpper(strings.TrimSpace(col.ColumnID))]; ok {
		return key
	}

	label := strings.ToLower(strings.TrimSpace(col.ColumnName))

	switch {
	case containsAny(label, "budget", "price"):
		return "budget"
	case containsAny(label, "property", "listing", "mls"):
		return "property"
	case containsAny(label, "message", "comment", "question", "looking for"):
		return "message"
	default:
		return strings.TrimSpace(col.ColumnName)
	}
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
