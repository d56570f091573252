// Package webhook provides the Google Ads lead form intake module.
// Leads arriving here skip the browser anti-bot checks and join the
// regular pipeline after extraction.
package webhook

import (
	apphttp "lead_pipeline_backend/internal/http"
	"lead_pipeline_backend/platform/config"
	"lead_pipeline_backend/platform/logger"
	"lead_pipeline_backend/platform/validator"
)

// Module is the webhook bounded context module implementing http.Module.
type Module struct {
	handler *Handler
}

// NewModule creates and initializes the webhook module with all its dependencies.
func NewModule(ingester LeadIngester, cfg config.WebhookConfig, val *validator.Validator, log *logger.Logger) *Module {
	service := NewService(ingester, val, cfg.GetGoogleLeadWebhookKey(), log)
	return &Module{handler: NewHandler(service)}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "webhook"
}

// RegisterRoutes mounts webhook routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	// Public Google Lead Form webhook (payload auth)
	ctx.V1.POST("/webhook/google-leads", m.handler.HandleGoogleLeadWebhook)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
