package webhook

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strconv"
	"strings"

	"lead_pipeline_backend/internal/leads/attribution"
	"lead_pipeline_backend/internal/leads/domain"
	"lead_pipeline_backend/internal/leads/service"
	"lead_pipeline_backend/platform/apperr"
	"lead_pipeline_backend/platform/logger"
	"lead_pipeline_backend/platform/phone"
	"lead_pipeline_backend/platform/sanitize"
	"lead_pipeline_backend/platform/validator"
)

const (
	googleLeadSource = "google"
	googleLeadMedium = "cpc"
	googleLeadTag    = "google-ads"

	// defaultGoogleMessage keeps the natural key stable when Google redelivers a lead without a message.
	defaultGoogleMessage = "Google Ads lead form submission"
)

// LeadIngester runs the lead pipeline for trusted sources.
type LeadIngester interface {
	Ingest(ctx context.Context, lead domain.Lead, fb attribution.RequestFallbacks) service.SubmitResult
}

// Service turns Google lead form payloads into pipeline leads.
type Service struct {
	ingester LeadIngester
	val      *validator.Validator
	key      string
	log      *logger.Logger
}

// GoogleLeadResult is the outcome of processing one webhook delivery.
type GoogleLeadResult struct {
	IsTest bool
	Result service.SubmitResult
}

// NewService creates the webhook service. key is the shared google_key configured in Google Ads.
func NewService(ingester LeadIngester, val *validator.Validator, key string, log *logger.Logger) *Service {
	return &Service{ingester: ingester, val: val, key: key, log: log}
}

// ProcessGoogleLeadWebhook validates and processes a Google Lead Form webhook payload.
func (s *Service) ProcessGoogleLeadWebhook(ctx context.Context, payload GoogleLeadPayload, clientIP string) (GoogleLeadResult, error) {
	if s.key == "" || subtle.ConstantTimeCompare([]byte(payload.GoogleKey), []byte(s.key)) != 1 {
		return GoogleLeadResult{}, apperr.Unauthorized("invalid google_key")
	}
	if payload.LeadID == "" {
		return GoogleLeadResult{}, apperr.Validation("missing lead_id")
	}

	if payload.IsTest {
		s.log.Info("webhook: google test lead received", "googleLeadId", payload.LeadID, "formId", payload.FormID)
		return GoogleLeadResult{IsTest: true}, nil
	}

	extracted := ExtractFields(ExtractGoogleLeadFields(payload))
	lead := s.buildLead(extracted, payload)
	if lead.Email == "" && lead.Phone == "" {
		s.log.Warn("webhook: google lead without contact details", "googleLeadId", payload.LeadID)
		return GoogleLeadResult{}, apperr.Validation("lead has no contact details")
	}

	result := s.ingester.Ingest(ctx, lead, attribution.RequestFallbacks{IP: clientIP})
	s.log.LeadStage("webhook_ingested", "googleLeadId", payload.LeadID, "leadId", result.LeadID, "campaignId", payload.CampaignID)

	return GoogleLeadResult{Result: result}, nil
}

func (s *Service) buildLead(extracted ExtractedFields, payload GoogleLeadPayload) domain.Lead {
	lead := domain.Lead{
		FirstName:     sanitize.Line(extracted.FirstName),
		LastName:      sanitize.Line(extracted.LastName),
		Email:         extracted.Email,
		Phone:         phone.NormalizeE164(extracted.Phone),
		Message:       sanitize.Text(extracted.Message),
		City:          sanitize.Line(extracted.City),
		State:         sanitize.Line(extracted.State),
		StreetAddress: sanitize.Line(extracted.StreetAddress),
		ZipCode:       sanitize.Line(extracted.ZipCode),
		PropertyID:    sanitize.Line(extracted.PropertyID),
		PageURL:       strings.TrimSpace(payload.GCLIDURL),
		BudgetMax:     parseBudget(extracted.Budget),
		Tags:          googleTags(payload),
		UTMSource:     googleLeadSource,
		UTMMedium:     googleLeadMedium,
		UTMCampaign:   campaignLabel(payload),
		Gclid:         strings.TrimSpace(payload.GCLID),
	}
	lead.FullName = strings.TrimSpace(lead.FirstName + " " + lead.LastName)

	if lead.Email != "" && s.val.Var(lead.Email, "email") != nil {
		s.log.Warn("webhook: dropping invalid email", "googleLeadId", payload.LeadID)
		lead.Email = ""
	}
	if lead.Message == "" {
		lead.Message = defaultGoogleMessage
	}
	return lead
}

func googleTags(payload GoogleLeadPayload) []string {
	tags := []string{googleLeadTag, "google-lead:" + payload.LeadID}
	if payload.FormID != 0 {
		tags = append(tags, fmt.Sprintf("google-form:%d", payload.FormID))
	}
	return tags
}

func campaignLabel(payload GoogleLeadPayload) string {
	if name := strings.TrimSpace(payload.CampaignName); name != "" {
		return name
	}
	if payload.CampaignID != 0 {
		return strconv.FormatInt(payload.CampaignID, 10)
	}
	return ""
}

// parseBudget reads values like "$750,000" or "750000". Ranges keep the upper bound.
func parseBudget(raw string) *float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	raw = strings.ReplaceAll(raw, "–", "-")
	if i := strings.LastIndex(raw, "-"); i >= 0 {
		raw = raw[i+1:]
	}
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' {
			return r
		}
		return -1
	}, raw)

	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || value <= 0 {
		return nil
	}
	return &value
}
