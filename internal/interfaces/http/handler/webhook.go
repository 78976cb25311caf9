package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appshipping "github.com/retailops/fulfillment/internal/application/shipping"
	"github.com/retailops/fulfillment/internal/infrastructure/carrier"
	"github.com/retailops/fulfillment/internal/infrastructure/logger"
	"github.com/retailops/fulfillment/internal/interfaces/http/dto"
)

// signatureHeader carries the carrier's HMAC of the raw request body.
const signatureHeader = "X-Shiplane-Signature"

// WebhookHandler ingests carrier status notifications
type WebhookHandler struct {
	BaseHandler
	webhookService *appshipping.WebhookService
	secret         string
	strict         bool
}

// NewWebhookHandler creates a webhook handler. With strict enabled,
// requests failing the signature check are rejected; otherwise they are
// accepted with a warning so signature rollout cannot drop events.
func NewWebhookHandler(webhookService *appshipping.WebhookService, secret string, strict bool) *WebhookHandler {
	return &WebhookHandler{
		webhookService: webhookService,
		secret:         secret,
		strict:         strict,
	}
}

// Receive handles an inbound carrier webhook. The event is always
// acknowledged once logged; processing failures are retried by the
// background sweep rather than redelivered by the carrier.
func (h *WebhookHandler) Receive(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.BadRequest(c, "Failed to read request body")
		return
	}

	if h.secret != "" {
		signature := c.GetHeader(signatureHeader)
		if !carrier.VerifySignature(h.secret, body, signature) {
			if h.strict {
				h.Error(c, http.StatusBadRequest, dto.ErrCodeWebhookSignature, "Webhook signature verification failed")
				return
			}
			logger.GetGinLogger(c).Warn("webhook signature verification failed",
				zap.Bool("signature_present", signature != ""),
			)
		}
	}

	var req appshipping.WebhookRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.BadRequest(c, "Invalid webhook payload")
		return
	}
	if req.EventType == "" || req.TrackingNumber == "" {
		h.BadRequest(c, "event_type and tracking_number are required")
		return
	}
	req.RawPayload = string(body)

	result, err := h.webhookService.Ingest(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}
