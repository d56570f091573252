// Package handler exposes the lead pipeline over HTTP.
package handler

import (
	"context"
	"io"
	"net/http"
	"time"

	"lead_pipeline_backend/internal/leads/attribution"
	"lead_pipeline_backend/internal/leads/intake"
	"lead_pipeline_backend/internal/leads/service"
	"lead_pipeline_backend/internal/leads/transport"
	"lead_pipeline_backend/platform/apperr"
	"lead_pipeline_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const maxSubmissionBytes = 64 << 10

const msgInvalidPayload = "Invalid payload"

// attributionCookies are read from the request when the payload omits them.
var attributionCookies = []string{
	"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content", "gclid", "fbclid",
}

// Submitter runs the lead pipeline.
type Submitter interface {
	Submit(ctx context.Context, raw []byte, fb attribution.RequestFallbacks) (service.SubmitResult, error)
	Stats() intake.Stats
}

// Handler serves the public submission endpoint and the operator endpoints.
type Handler struct {
	svc     Submitter
	crm     CRMDiagnoser
	queue   QueueStats
	sweeper FollowupSweeper
	archive DeadLetterLister
	now     func() time.Time
}

// Option wires an optional operator dependency.
type Option func(*Handler)

// WithCRMDiagnoser enables the credential check endpoint.
func WithCRMDiagnoser(d CRMDiagnoser) Option {
	return func(h *Handler) { h.crm = d }
}

// WithQueueStats includes delivery queue counters in the stats endpoint.
func WithQueueStats(q QueueStats) Option {
	return func(h *Handler) { h.queue = q }
}

// WithFollowupSweeper enables the cron follow-up endpoint.
func WithFollowupSweeper(s FollowupSweeper) Option {
	return func(h *Handler) { h.sweeper = s }
}

// WithDeadLetterArchive enables listing archived dead letters.
func WithDeadLetterArchive(a DeadLetterLister) Option {
	return func(h *Handler) { h.archive = a }
}

// New creates the leads handler.
func New(svc Submitter, opts ...Option) *Handler {
	h := &Handler{svc: svc, now: time.Now}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes mounts the public submission route.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, middleware ...gin.HandlerFunc) {
	rg.POST("", append(middleware, h.Submit)...)
}

// Submit accepts a lead from the public form.
func (h *Handler) Submit(c *gin.Context) {
	raw, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxSubmissionBytes))
	if err != nil {
		httpkit.HandleError(c, apperr.Validation(msgInvalidPayload))
		return
	}

	res, err := h.svc.Submit(c.Request.Context(), raw, fallbacksFromRequest(c))
	if httpkit.HandleError(c, err) {
		return
	}
	if res.Outcome == intake.OutcomeHoneypot {
		httpkit.OK(c, transport.AckResponse{OK: true})
		return
	}

	httpkit.OK(c, toSubmitResponse(res))
}

func toSubmitResponse(res service.SubmitResult) transport.SubmitLeadResponse {
	resp := transport.SubmitLeadResponse{
		OK:            true,
		Score:         res.Score.Score,
		Priority:      string(res.Score.Priority),
		AssignedAgent: res.Lead.AssignedAgent,
		CRMError:      res.CRMError,
	}
	if res.LeadID != uuid.Nil {
		resp.LeadID = res.LeadID.String()
	}
	if res.CRM != nil {
		resp.CRM = &transport.CRMRef{Provider: res.CRM.Provider, ID: res.CRM.ID}
	}
	return resp
}

func fallbacksFromRequest(c *gin.Context) attribution.RequestFallbacks {
	cookies := make(map[string]string, len(attributionCookies))
	for _, name := range attributionCookies {
		if v, err := c.Cookie(name); err == nil && v != "" {
			cookies[name] = v
		}
	}

	return attribution.RequestFallbacks{
		Query:     c.Request.URL.Query(),
		Cookies:   cookies,
		Referer:   c.Request.Referer(),
		UserAgent: c.Request.UserAgent(),
		IP:        c.ClientIP(),
	}
}
