package webhook

import (
	"regexp"
	"strings"
)

// ExtractedFields holds the fields extracted from raw form data via best-effort pattern matching.
type ExtractedFields struct {
	FirstName     string
	LastName      string
	Email         string
	Phone         string
	StreetAddress string
	City          string
	State         string
	ZipCode       string
	Message       string
	Budget        string
	PropertyID    string
}

// IsIncomplete returns true if no contact method was captured.
func (e ExtractedFields) IsIncomplete() bool {
	return e.Phone == "" && e.Email == ""
}

// ExtractFields performs best-effort field extraction from a flat string map of form data.
// It uses label matching to identify common fields across any form.
func ExtractFields(data map[string]string) ExtractedFields {
	var result ExtractedFields

	for key, value := range data {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		k := strings.ToLower(strings.TrimSpace(key))

		switch {
		case matchesAny(k, firstNamePatterns):
			result.FirstName = value
		case matchesAny(k, lastNamePatterns):
			result.LastName = value
		case matchesAny(k, fullNamePatterns):
			parts := strings.SplitN(value, " ", 2)
			if result.FirstName == "" {
				result.FirstName = parts[0]
			}
			if len(parts) > 1 && result.LastName == "" {
				result.LastName = strings.TrimSpace(parts[1])
			}
		case matchesAny(k, emailPatterns):
			result.Email = strings.ToLower(value)
		case matchesAny(k, phonePatterns):
			result.Phone = value
		case matchesAny(k, streetPatterns):
			result.StreetAddress = value
		case matchesAny(k, zipCodePatterns):
			result.ZipCode = normalizeZipCode(value)
		case matchesAny(k, cityPatterns):
			result.City = value
		case matchesAny(k, statePatterns):
			result.State = value
		case matchesAny(k, messagePatterns):
			result.Message = value
		case matchesAny(k, budgetPatterns):
			result.Budget = value
		case matchesAny(k, propertyPatterns):
			result.PropertyID = value
		case matchesAny(k, addressPatterns):
			parseFullAddress(value, &result)
		}
	}

	return result
}

// Field label patterns
var (
	firstNamePatterns = []string{"first_name", "firstname", "first name", "given_name", "givenname", "fname"}
	lastNamePatterns  = []string{"last_name", "lastname", "last name", "family_name", "familyname", "surname", "lname"}
	fullNamePatterns  = []string{"name", "full_name", "fullname", "your_name", "your name"}
	emailPatterns     = []string{"email", "e-mail", "e_mail", "emailaddress", "email_address", "mail"}
	phonePatterns     = []string{"phone", "tel", "telephone", "phonenumber", "phone_number", "mobile", "cell"}
	streetPatterns    = []string{"street", "street_address", "streetaddress", "address1", "address_line_1"}
	zipCodePatterns   = []string{"zip", "zipcode", "zip_code", "postcode", "postal_code", "postalcode", "zip code", "postal code"}
	cityPatterns      = []string{"city", "town", "location"}
	statePatterns     = []string{"state", "region", "province"}
	messagePatterns   = []string{"message", "comment", "comments", "notes", "description", "question"}
	budgetPatterns    = []string{"budget", "max_budget", "price_range", "max_price"}
	propertyPatterns  = []string{"property", "property_id", "propertyid", "listing", "listing_id", "mls"}
	addressPatterns   = []string{"address", "full_address", "fulladdress"}
)

var (
	usZipRe      = regexp.MustCompile(`\b(\d{5})(?:-\d{4})?\b`)
	stateZipRe   = regexp.MustCompile(`^([A-Za-z]{2})\s+(\d{5}(?:-\d{4})?)$`)
	labelCleaner = strings.NewReplacer("-", "", "_", "", " ", "")
)

func matchesAny(label string, patterns []string) bool {
	// Normalize: strip spaces, dashes, underscores for fuzzy matching
	normalized := labelCleaner.Replace(label)
	for _, p := range patterns {
		if normalized == labelCleaner.Replace(p) {
			return true
		}
	}
	return false
}

func normalizeZipCode(value string) string {
	if m := usZipRe.FindStringSubmatch(value); len(m) == 2 {
		return m[1]
	}
	return strings.TrimSpace(value)
}

// parseFullAddress splits "Street, City, ST 12345". Fields already set are kept.
func parseFullAddress(value string, result *ExtractedFields) {
	parts := strings.Split(value, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	if result.StreetAddress == "" {
		result.StreetAddress = parts[0]
	}
	if len(parts) >= 2 && result.City == "" {
		result.City = parts[1]
	}
	if len(parts) >= 3 {
		if m := stateZipRe.FindStringSubmatch(parts[2]); m != nil {
			if result.State == "" {
				result.State = strings.ToUpper(m[1])
			}
			if result.ZipCode == "" {
				result.ZipCode = normalizeZipCode(m[2])
			}
		} else if result.State == "" {
			result.State = parts[2]
		}
	}
}
