package domain

// CRMStatus is the delivery outcome recorded on the lead row.
type CRMStatus string

const (
	CRMStatusUnset   CRMStatus = ""
	CRMStatusCreated CRMStatus = "created"
	CRMStatusFailed  CRMStatus = "failed"
)

// CRMState mirrors the crm_* columns of a lead row.
type CRMState struct {
	Provider string    `json:"provider,omitempty"`
	LeadID   string    `json:"leadId,omitempty"`
	Status   CRMStatus `json:"status,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// Delivered reports whether the CRM already holds a record for the lead.
func (s CRMState) Delivered() bool {
	return s.LeadID != ""
}
