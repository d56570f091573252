// Package intake turns an untyped lead submission into a validated,
// sanitized domain.Lead, or a tagged rejection.
package intake

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync/atomic"

	"lead_pipeline_backend/internal/leads/domain"
	"lead_pipeline_backend/internal/leads/transport"
	"lead_pipeline_backend/platform/apperr"
	"lead_pipeline_backend/platform/phone"
	"lead_pipeline_backend/platform/sanitize"
	"lead_pipeline_backend/platform/validator"
)

const (
	msgInvalidPayload = "Invalid payload"
	msgBotSuspected   = "Bot suspected"
)

// Outcome tags the result of parsing a submission.
type Outcome int

const (
	OutcomeAccepted Outcome = iota
	OutcomeHoneypot
	OutcomeBotSuspected
	OutcomeInvalid
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAccepted:
		return "accepted"
	case OutcomeHoneypot:
		return "honeypot"
	case OutcomeBotSuspected:
		return "bot_suspected"
	case OutcomeInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Result is either an accepted lead or a rejection. Err is set for
// OutcomeInvalid (400) and OutcomeBotSuspected (202).
type Result struct {
	Lead    domain.Lead
	Outcome Outcome
	Err     error
}

// Stats counts parse outcomes so rejected traffic is visible rather than dropped.
type Stats struct {
	Accepted     int64 `json:"accepted"`
	Honeypot     int64 `json:"honeypot"`
	BotSuspected int64 `json:"botSuspected"`
	Invalid      int64 `json:"invalid"`
}

// Parser validates and sanitizes lead submissions.
type Parser struct {
	val      *validator.Validator
	counters [4]atomic.Int64
}

// New creates a Parser backed by the shared validator.
func New(val *validator.Validator) *Parser {
	return &Parser{val: val}
}

// Parse decodes a raw JSON body. Unknown keys and type mismatches are rejected.
func (p *Parser) Parse(raw []byte) Result {
	req, err := decodeStrict(raw)
	if err != nil {
		return p.record(Result{Outcome: OutcomeInvalid, Err: invalid(err.Error())})
	}
	return p.fromRequest(req)
}

// ParseMap validates an already decoded object.
func (p *Parser) ParseMap(payload map[string]any) Result {
	if payload == nil {
		return p.record(Result{Outcome: OutcomeInvalid, Err: invalid("payload is empty")})
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return p.record(Result{Outcome: OutcomeInvalid, Err: invalid(err.Error())})
	}
	return p.Parse(raw)
}

// Stats returns a snapshot of the outcome counters.
func (p *Parser) Stats() Stats {
	return Stats{
		Accepted:     p.counters[OutcomeAccepted].Load(),
		Honeypot:     p.counters[OutcomeHoneypot].Load(),
		BotSuspected: p.counters[OutcomeBotSuspected].Load(),
		Invalid:      p.counters[OutcomeInvalid].Load(),
	}
}

func (p *Parser) fromRequest(req transport.SubmitLeadRequest) Result {
	if err := p.val.Struct(req); err != nil {
		return p.record(Result{
			Outcome: OutcomeInvalid,
			Err:     apperr.Wrap(apperr.KindValidation, msgInvalidPayload, err),
		})
	}

	lead := toLead(req)

	if lead.IsHoneypot() {
		return p.record(Result{Outcome: OutcomeHoneypot})
	}
	if lead.IsBotSuspected() {
		return p.record(Result{Outcome: OutcomeBotSuspected, Err: apperr.Accepted(msgBotSuspected)})
	}

	return p.record(Result{Lead: lead, Outcome: OutcomeAccepted})
}

func (p *Parser) record(r Result) Result {
	p.counters[r.Outcome].Add(1)
	return r
}

func decodeStrict(raw []byte) (transport.SubmitLeadRequest, error) {
	var req transport.SubmitLeadRequest

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return req, errEmptyPayload
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return req, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return req, errTrailingData
	}
	return req, nil
}

func toLead(req transport.SubmitLeadRequest) domain.Lead {
	lead := domain.Lead{
		FirstName:         sanitize.Line(req.FirstName),
		LastName:          sanitize.Line(req.LastName),
		FullName:          sanitize.Line(req.FullName),
		Email:             strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:             phone.NormalizeE164(req.Phone),
		Message:           sanitize.Text(req.Message),
		City:              sanitize.Line(req.City),
		State:             sanitize.Line(req.State),
		County:            sanitize.Line(req.County),
		StreetAddress:     sanitize.Line(req.StreetAddress),
		ZipCode:           sanitize.Line(req.ZipCode),
		PropertyID:        strings.TrimSpace(req.PropertyID),
		PageURL:           strings.TrimSpace(req.PageURL),
		Tags:              normalizeTags(req.Tags),
		BudgetMin:         req.BudgetMin,
		BudgetMax:         req.BudgetMax,
		Beds:              sanitize.Line(req.Beds.Value),
		Baths:             sanitize.Line(req.Baths.Value),
		PropertyType:      sanitize.Line(req.PropertyType),
		WantsTour:         req.WantsTour,
		IsCashBuyer:       req.IsCashBuyer,
		Timeframe:         req.Timeframe,
		ContactPreference: req.ContactPreference,
		TimeOnPageMS:      req.TimeOnPageMS,
		UTMSource:         strings.TrimSpace(req.UTMSource),
		UTMMedium:         strings.TrimSpace(req.UTMMedium),
		UTMCampaign:       strings.TrimSpace(req.UTMCampaign),
		UTMTerm:           strings.TrimSpace(req.UTMTerm),
		UTMContent:        strings.TrimSpace(req.UTMContent),
		Referrer:          strings.TrimSpace(req.Referrer),
		Source:            strings.TrimSpace(req.Source),
		Medium:            strings.TrimSpace(req.Medium),
		Campaign:          strings.TrimSpace(req.Campaign),
		Term:              strings.TrimSpace(req.Term),
		Content:           strings.TrimSpace(req.Content),
		Gclid:             strings.TrimSpace(req.Gclid),
		Fbclid:            strings.TrimSpace(req.Fbclid),
	}
	if req.Company != nil {
		lead.Company = strings.TrimSpace(*req.Company)
	}
	return lead
}

func normalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// invalid keeps the reason for logs only. The public reply is always the
// bare "Invalid payload" message.
func invalid(reason string) *apperr.Error {
	return apperr.Wrap(apperr.KindValidation, msgInvalidPayload, errors.New(reason))
}
