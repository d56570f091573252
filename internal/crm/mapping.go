package crm

import (
	"strings"

	"lead_pipeline_backend/internal/leads/domain"
)

// loftyLead is the Lofty create-lead body. Only names and shapes change;
// values are copied as-is.
type loftyLead struct {
	FirstName    string   `json:"first_name"`
	LastName     string   `json:"last_name"`
	Email        string   `json:"email"`
	Phone        string   `json:"phone"`
	Message      string   `json:"message"`
	Source       string   `json:"source"`
	Tags         []string `json:"tags"`
	City         string   `json:"city"`
	State        string   `json:"state"`
	County       string   `json:"county"`
	BudgetMin    *float64 `json:"budget_min"`
	BudgetMax    *float64 `json:"budget_max"`
	Beds         *string  `json:"beds"`
	Baths        *string  `json:"baths"`
	PropertyType *string  `json:"property_type"`
	UTMSource    *string  `json:"utm_source"`
	UTMMedium    *string  `json:"utm_medium"`
	UTMCampaign  *string  `json:"utm_campaign"`
	UTMContent   *string  `json:"utm_content"`
	UTMTerm      *string  `json:"utm_term"`
	Gclid        *string  `json:"gclid"`
	Fbclid       *string  `json:"fbclid"`
	PageURL      *string  `json:"page_url"`
	Referer      *string  `json:"referer"`
	UserAgent    *string  `json:"user_agent"`
	IP           *string  `json:"ip"`
	Score        int      `json:"score"`
}

func toLoftyLead(lead domain.Lead) loftyLead {
	first, last := lead.FirstName, lead.LastName
	if first == "" && last == "" && lead.FullName != "" {
		parts := strings.Split(lead.FullName, " ")
		first = parts[0]
		last = strings.Join(parts[1:], " ")
	}

	source := lead.Source
	if source == "" {
		source = "website"
	}
	tags := lead.Tags
	if tags == nil {
		tags = []string{}
	}

	return loftyLead{
		FirstName:    first,
		LastName:     last,
		Email:        lead.Email,
		Phone:        lead.Phone,
		Message:      lead.Message,
		Source:       source,
		Tags:         tags,
		City:         lead.City,
		State:        lead.State,
		County:       lead.County,
		BudgetMin:    lead.BudgetMin,
		BudgetMax:    lead.BudgetMax,
		Beds:         optional(lead.Beds),
		Baths:        optional(lead.Baths),
		PropertyType: optional(lead.PropertyType),
		UTMSource:    optional(lead.UTMSource),
		UTMMedium:    optional(lead.UTMMedium),
		UTMCampaign:  optional(lead.UTMCampaign),
		UTMContent:   optional(lead.UTMContent),
		UTMTerm:      optional(lead.UTMTerm),
		Gclid:        optional(lead.Gclid),
		Fbclid:       optional(lead.Fbclid),
		PageURL:      optional(lead.PageURL),
		Referer:      optional(lead.Referrer),
		UserAgent:    optional(lead.UserAgent),
		IP:           optional(lead.IP),
		Score:        lead.Score,
	}
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
