package webhook

import (
	"net/http"

	"lead_pipeline_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler serves the Google lead form webhook.
type Handler struct {
	service *Service
}

// NewHandler creates the webhook handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// HandleGoogleLeadWebhook processes Google Lead Form webhook payloads.
// POST /api/v1/webhook/google-leads
func (h *Handler) HandleGoogleLeadWebhook(c *gin.Context) {
	var payload GoogleLeadPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid payload", nil)
		return
	}
	if payload.GoogleKey == "" {
		httpkit.Error(c, http.StatusUnauthorized, "missing google_key", nil)
		return
	}

	result, err := h.service.ProcessGoogleLeadWebhook(c.Request.Context(), payload, c.ClientIP())
	if httpkit.HandleError(c, err) {
		return
	}

	if result.IsTest {
		httpkit.OK(c, GoogleLeadWebhookResponse{IsTest: true, Message: "Test lead received"})
		return
	}

	resp := GoogleLeadWebhookResponse{
		Score:    result.Result.Score.Score,
		CRMError: result.Result.CRMError,
		Message:  "Lead received",
	}
	if result.Result.LeadID != uuid.Nil {
		resp.LeadID = result.Result.LeadID.String()
	}
	httpkit.OK(c, resp)
}
