// Package domain provides core business types for the leads bounded context.
package domain

import (
	"strings"

	"github.com/google/uuid"
)

// MinTimeOnPageMS is the engagement threshold below which a submission is treated as a bot.
const MinTimeOnPageMS = 1000

// DefaultSource is the attribution source for leads without a utm_source.
const DefaultSource = "Crown Coastal Homes Website"

// AssignedAgent is the sales agent a lead is routed to.
type AssignedAgent struct {
	Name  string `json:"name" yaml:"name"`
	Email string `json:"email,omitempty" yaml:"email,omitempty"`
}

// Unassigned is returned when no routing rule matches.
var Unassigned = AssignedAgent{Name: "Unassigned"}

// Lead is a validated and enriched inquiry. Score and AssignedAgent are
// written by the pipeline and never taken from the client.
type Lead struct {
	ID uuid.UUID `json:"id,omitempty"`

	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	FullName  string `json:"fullName,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`

	Message       string `json:"message,omitempty"`
	City          string `json:"city,omitempty"`
	State         string `json:"state,omitempty"`
	County        string `json:"county,omitempty"`
	StreetAddress string `json:"streetAddress,omitempty"`
	ZipCode       string `json:"zipCode,omitempty"`

	PropertyID string   `json:"propertyId,omitempty"`
	PageURL    string   `json:"pageUrl,omitempty"`
	Tags       []string `json:"tags,omitempty"`

	BudgetMin         *float64 `json:"budgetMin,omitempty"`
	BudgetMax         *float64 `json:"budgetMax,omitempty"`
	Beds              string   `json:"beds,omitempty"`
	Baths             string   `json:"baths,omitempty"`
	PropertyType      string   `json:"propertyType,omitempty"`
	WantsTour         bool     `json:"wantsTour,omitempty"`
	IsCashBuyer       bool     `json:"isCashBuyer,omitempty"`
	Timeframe         string   `json:"timeframe,omitempty"`
	ContactPreference string   `json:"contactPreference,omitempty"`

	// Anti-bot signals
	TimeOnPageMS *float64 `json:"__top,omitempty"`
	Company      string   `json:"company,omitempty"`

	UTMSource   string `json:"utm_source,omitempty"`
	UTMMedium   string `json:"utm_medium,omitempty"`
	UTMCampaign string `json:"utm_campaign,omitempty"`
	UTMTerm     string `json:"utm_term,omitempty"`
	UTMContent  string `json:"utm_content,omitempty"`
	Referrer    string `json:"referrer,omitempty"`

	// Legacy attribution aliases
	Source   string `json:"source,omitempty"`
	Medium   string `json:"medium,omitempty"`
	Campaign string `json:"campaign,omitempty"`
	Term     string `json:"term,omitempty"`
	Content  string `json:"content,omitempty"`

	Gclid     string `json:"gclid,omitempty"`
	Fbclid    string `json:"fbclid,omitempty"`
	UserAgent string `json:"userAgent,omitempty"`
	IP        string `json:"ip,omitempty"`

	Score         int            `json:"score"`
	AssignedAgent *AssignedAgent `json:"assignedAgent,omitempty"`
}

// DisplayName returns the full name, or first and last name joined.
func (l Lead) DisplayName() string {
	if l.FullName != "" {
		return strings.TrimSpace(l.FullName)
	}
	return strings.TrimSpace(l.FirstName + " " + l.LastName)
}

// TimeOnPage returns the reported time on page, treating absence as zero.
func (l Lead) TimeOnPage() float64 {
	if l.TimeOnPageMS == nil {
		return 0
	}
	return *l.TimeOnPageMS
}

// IsHoneypot reports whether the hidden company field was filled in.
func (l Lead) IsHoneypot() bool {
	return strings.TrimSpace(l.Company) != ""
}

// IsBotSuspected reports whether the engagement signal is below threshold.
func (l Lead) IsBotSuspected() bool {
	return l.TimeOnPage() < MinTimeOnPageMS
}

// AgentEmail returns the assigned agent's email, if any.
func (l Lead) AgentEmail() string {
	if l.AssignedAgent == nil {
		return ""
	}
	return l.AssignedAgent.Email
}
