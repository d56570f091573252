// Package leads provides the lead pipeline bounded context module.
// This file defines the module that encapsulates leads setup and route registration.
package leads

import (
	"fmt"

	"lead_pipeline_backend/internal/events"
	apphttp "lead_pipeline_backend/internal/http"
	"lead_pipeline_backend/internal/leads/assignment"
	"lead_pipeline_backend/internal/leads/handler"
	"lead_pipeline_backend/internal/leads/intake"
	"lead_pipeline_backend/internal/leads/repository"
	"lead_pipeline_backend/internal/leads/service"
	"lead_pipeline_backend/platform/config"
	"lead_pipeline_backend/platform/logger"
	"lead_pipeline_backend/platform/validator"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule wires the pipeline. queue may be nil when CRM delivery is disabled.
func NewModule(
	repo *repository.Repository,
	eventBus events.Bus,
	val *validator.Validator,
	routingCfg config.RoutingConfig,
	counter assignment.Counter,
	queue service.CRMQueue,
	log *logger.Logger,
	opts ...handler.Option,
) (*Module, error) {
	routing, err := assignment.LoadRouting(routingCfg.GetAgentRoutingJSON(), routingCfg.GetAgentRoutingFile())
	if err != nil {
		return nil, fmt.Errorf("load agent routing: %w", err)
	}
	if routing.IsEmpty() {
		log.Warn("agent routing is empty; every lead will be unassigned")
	}

	router := assignment.NewRouter(routing, counter, log)
	svc := service.New(intake.New(val), router, repo, queue, eventBus, log)

	return &Module{
		handler: handler.New(svc, opts...),
		service: svc,
	}, nil
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// Service returns the pipeline service for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts leads routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	// Public form posts are throttled per IP
	m.handler.RegisterRoutes(ctx.V1.Group("/leads"), ctx.SubmissionRateLimiter.RateLimit())

	// Operator routes share the cron secret
	m.handler.RegisterOperatorRoutes(ctx.Operator.Group("/leads"), ctx.Operator.Group("/cron"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
