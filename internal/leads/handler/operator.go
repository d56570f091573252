package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"lead_pipeline_backend/internal/adapters/storage"
	"lead_pipeline_backend/internal/crm"
	"lead_pipeline_backend/internal/leads/intake"
	"lead_pipeline_backend/internal/leads/transport"
	"lead_pipeline_backend/platform/apperr"
	"lead_pipeline_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

const (
	defaultDeadLetterLimit = 50
	maxDeadLetterLimit     = 500
)

// CRMDiagnoser checks provider credentials without creating a lead.
type CRMDiagnoser interface {
	CheckCredentials(ctx context.Context) (crm.DiagnosticResult, error)
}

// QueueStats exposes delivery queue counters.
type QueueStats interface {
	Snapshot() crm.Stats
}

// FollowupSweeper sends due follow-up reminders.
type FollowupSweeper interface {
	Sweep(ctx context.Context, now time.Time) (int, error)
}

// DeadLetterLister lists archived dead-lettered deliveries.
type DeadLetterLister interface {
	List(ctx context.Context, prefix string, limit int) ([]storage.ObjectInfo, error)
}

// StatsResponse reports intake and delivery counters.
type StatsResponse struct {
	OK     bool         `json:"ok"`
	Intake intake.Stats `json:"intake"`
	Queue  *crm.Stats   `json:"queue,omitempty"`
}

// DeadLettersResponse lists archived dead letters, newest first.
type DeadLettersResponse struct {
	OK      bool                 `json:"ok"`
	Objects []storage.ObjectInfo `json:"objects"`
}

// RegisterOperatorRoutes mounts the secret-guarded lead routes.
func (h *Handler) RegisterOperatorRoutes(leads, cron *gin.RouterGroup) {
	leads.GET("/crm/diagnostic", h.CRMDiagnostic)
	leads.GET("/stats", h.Stats)
	leads.GET("/crm/dead-letters", h.DeadLetters)
	cron.POST("/followups", h.SweepFollowups)
}

// CRMDiagnostic reports whether the CRM accepts the configured credentials.
func (h *Handler) CRMDiagnostic(c *gin.Context) {
	if h.crm == nil {
		httpkit.HandleError(c, apperr.Unavailable("CRM provider disabled"))
		return
	}

	res, err := h.crm.CheckCredentials(c.Request.Context())
	if errors.Is(err, crm.ErrMissingAPIKey) {
		httpkit.JSON(c, http.StatusBadRequest, transport.CRMDiagnosticResponse{Error: "Missing LOFTY_API_KEY"})
		return
	}
	if err != nil {
		httpkit.JSON(c, http.StatusInternalServerError, transport.CRMDiagnosticResponse{Error: err.Error()})
		return
	}

	resp := transport.CRMDiagnosticResponse{
		OK:       res.OK,
		TestMode: res.TestMode,
		Auth:     res.Auth,
		Status:   res.Status,
		Body:     res.Body,
	}
	if res.TestMode {
		resp.Message = "Test mode enabled; credentials not validated against Lofty."
	}
	httpkit.OK(c, resp)
}

// Stats returns intake outcome counters and, when delivery is enabled, queue counters.
func (h *Handler) Stats(c *gin.Context) {
	resp := StatsResponse{OK: true, Intake: h.svc.Stats()}
	if h.queue != nil {
		snapshot := h.queue.Snapshot()
		resp.Queue = &snapshot
	}
	httpkit.OK(c, resp)
}

// DeadLetters lists archived deliveries. ?prefix narrows by date, e.g. dead-letters/2026/03/.
func (h *Handler) DeadLetters(c *gin.Context) {
	if h.archive == nil {
		httpkit.HandleError(c, apperr.Unavailable("dead-letter archive not configured"))
		return
	}

	limit := defaultDeadLetterLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			httpkit.HandleError(c, apperr.Validation("invalid limit"))
			return
		}
		limit = min(n, maxDeadLetterLimit)
	}

	prefix := c.DefaultQuery("prefix", crm.ArchivePrefix)
	objects, err := h.archive.List(c.Request.Context(), prefix, limit)
	if err != nil {
		httpkit.HandleError(c, apperr.Wrap(apperr.KindInternal, "list dead letters", err))
		return
	}
	httpkit.OK(c, DeadLettersResponse{OK: true, Objects: objects})
}

// SweepFollowups sends every due follow-up reminder.
func (h *Handler) SweepFollowups(c *gin.Context) {
	if h.sweeper == nil {
		httpkit.HandleError(c, apperr.Unavailable("follow-ups not configured"))
		return
	}

	sent, err := h.sweeper.Sweep(c.Request.Context(), h.now())
	if err != nil {
		httpkit.JSON(c, http.StatusInternalServerError, transport.AckResponse{Error: err.Error()})
		return
	}
	httpkit.OK(c, transport.FollowupSweepResponse{OK: true, Sent: sent})
}
