package transport

import "lead_pipeline_backend/internal/leads/domain"

// SubmitLeadRequest is the closed set of fields accepted by the lead endpoint.
// Unknown keys are rejected during decoding.
type SubmitLeadRequest struct {
	FirstName string `json:"firstName" validate:"max=100"`
	LastName  string `json:"lastName" validate:"max=100"`
	FullName  string `json:"fullName" validate:"max=200"`
	Email     string `json:"email" validate:"omitempty,email,max=254"`
	Phone     string `json:"phone" validate:"max=40"`

	Message       string `json:"message" validate:"max=5000"`
	City          string `json:"city" validate:"max=100"`
	State         string `json:"state" validate:"max=100"`
	County        string `json:"county" validate:"max=100"`
	StreetAddress string `json:"streetAddress" validate:"max=200"`
	ZipCode       string `json:"zipCode" validate:"max=20"`

	PropertyID string   `json:"propertyId" validate:"max=100"`
	PageURL    string   `json:"pageUrl" validate:"omitempty,url,max=2048"`
	Tags       []string `json:"tags" validate:"max=25,dive,max=64"`

	BudgetMin         *float64   `json:"budgetMin" validate:"omitempty,gte=0"`
	BudgetMax         *float64   `json:"budgetMax" validate:"omitempty,gte=0"`
	Beds              FlexString `json:"beds"`
	Baths             FlexString `json:"baths"`
	PropertyType      string     `json:"propertyType" validate:"max=50"`
	WantsTour         bool       `json:"wantsTour"`
	IsCashBuyer       bool       `json:"isCashBuyer"`
	Timeframe         string     `json:"timeframe" validate:"omitempty,oneof=now 30d 90d later"`
	ContactPreference string     `json:"contactPreference" validate:"omitempty,oneof=sms email phone any"`

	TimeOnPageMS *float64 `json:"__top"`
	Company      *string  `json:"company"`

	UTMSource   string `json:"utm_source" validate:"max=200"`
	UTMMedium   string `json:"utm_medium" validate:"max=200"`
	UTMCampaign string `json:"utm_campaign" validate:"max=200"`
	UTMTerm     string `json:"utm_term" validate:"max=200"`
	UTMContent  string `json:"utm_content" validate:"max=200"`
	Referrer    string `json:"referrer" validate:"max=2048"`

	Source   string `json:"source" validate:"max=200"`
	Medium   string `json:"medium" validate:"max=200"`
	Campaign string `json:"campaign" validate:"max=200"`
	Term     string `json:"term" validate:"max=200"`
	Content  string `json:"content" validate:"max=200"`
	Gclid    string `json:"gclid" validate:"max=500"`
	Fbclid   string `json:"fbclid" validate:"max=500"`
}

// CRMRef identifies the CRM record created for a lead.
type CRMRef struct {
	Provider string `json:"provider"`
	ID       string `json:"id"`
}

// SubmitLeadResponse is returned for an accepted lead.
type SubmitLeadResponse struct {
	OK            bool                  `json:"ok"`
	LeadID        string                `json:"leadId,omitempty"`
	CRM           *CRMRef               `json:"crm,omitempty"`
	Score         int                   `json:"score"`
	Priority      string                `json:"priority"`
	AssignedAgent *domain.AssignedAgent `json:"assignedAgent"`
	CRMError      string                `json:"crm_error,omitempty"`
}

// AckResponse is the bare acknowledgement used for honeypot hits and errors.
type AckResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// FollowupSweepResponse reports the outcome of a follow-up sweep.
type FollowupSweepResponse struct {
	OK   bool `json:"ok"`
	Sent int  `json:"sent"`
}

// CRMDiagnosticResponse reports whether the CRM credentials are accepted.
type CRMDiagnosticResponse struct {
	OK       bool   `json:"ok"`
	TestMode bool   `json:"testMode,omitempty"`
	Auth     *bool  `json:"auth,omitempty"`
	Status   int    `json:"status,omitempty"`
	Body     string `json:"body,omitempty"`
	Error    string `json:"error,omitempty"`
	Message  string `json:"message,omitempty"`
}
