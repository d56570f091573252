// Package crm delivers leads to the external CRM with bounded retries.
package crm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"lead_pipeline_backend/internal/leads/domain"
	"lead_pipeline_backend/platform/config"
	"lead_pipeline_backend/platform/logger"
)

// ProviderName is the closed set of supported CRM providers.
type ProviderName string

const (
	ProviderLofty ProviderName = "lofty"
	ProviderNone  ProviderName = "none"
)

var (
	ErrMissingAPIKey     = errors.New("missing LOFTY_API_KEY")
	ErrProviderDisabled  = errors.New("crm provider disabled")
	ErrUnsupportedTarget = errors.New("unsupported crm provider")
)

// PushResult is the external record created for a lead.
type PushResult struct {
	ID  string
	Raw json.RawMessage
}

// Provider creates a lead in an external CRM.
type Provider interface {
	Name() string
	PushLead(ctx context.Context, lead domain.Lead) (PushResult, error)
}

// NewProvider returns the provider selected by CRM_PROVIDER.
func NewProvider(cfg config.CRMConfig, log *logger.Logger) (Provider, error) {
	switch ProviderName(cfg.GetCRMProvider()) {
	case ProviderLofty:
		return NewLoftyProvider(cfg, log), nil
	case ProviderNone:
		return disabledProvider{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedTarget, cfg.GetCRMProvider())
	}
}

// Enabled reports whether p actually delivers leads.
func Enabled(p Provider) bool {
	if p == nil {
		return false
	}
	_, disabled := p.(disabledProvider)
	return !disabled
}

type disabledProvider struct{}

func (disabledProvider) Name() string { return string(ProviderNone) }

func (disabledProvider) PushLead(context.Context, domain.Lead) (PushResult, error) {
	return PushResult{}, ErrProviderDisabled
}
