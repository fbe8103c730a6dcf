package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"simplyinvoicing/api/internal/metrics"
	"simplyinvoicing/api/internal/payments"
	"simplyinvoicing/api/internal/services"
)

// maxWebhookBodyBytes caps the payload read from the payment provider.
const maxWebhookBodyBytes = 65536

// StripeSignatureHeader carries the HMAC signature of a webhook delivery.
const StripeSignatureHeader = "Stripe-Signature"

// WebhookHandler receives payment provider events.
type WebhookHandler struct {
	gateway        payments.IGateway
	webhookService services.IWebhookService
	metrics        *metrics.Metrics
}

// NewWebhookHandler creates the webhook endpoint handler. m may be nil.
func NewWebhookHandler(gateway payments.IGateway, webhookService services.IWebhookService, m *metrics.Metrics) *WebhookHandler {
	return &WebhookHandler{gateway: gateway, webhookService: webhookService, metrics: m}
}

// HandleStripeWebhook is the entry point for POST /v1/webhooks/stripe.
// A non-2xx answer makes the provider redeliver the event.
func (h *WebhookHandler) HandleStripeWebhook(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBodyBytes)
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		log.WithError(err).Warn("Failed to read webhook body")
		h.record("unknown", metrics.OutcomeInvalid)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body"})
		return
	}

	evt, err := h.gateway.ConstructEvent(payload, c.GetHeader(StripeSignatureHeader))
	if err != nil {
		h.record("unknown", metrics.OutcomeInvalid)
		if errors.Is(err, payments.ErrNotConfigured) {
			log.Error("Webhook received but STRIPE_WEBHOOK_SECRET is not set")
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Webhooks are not configured"})
			return
		}
		log.WithError(err).Warn("Webhook signature verification failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid signature"})
		return
	}

	fields := log.Fields{"eventID": evt.ID, "type": evt.Type}
	outcome, err := h.webhookService.HandleEvent(c.Request.Context(), evt)
	if err != nil {
		log.WithFields(fields).WithError(err).Error("Webhook dispatch failed")
		h.record(evt.Type, metrics.OutcomeError)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Webhook handler failed"})
		return
	}

	log.WithFields(fields).WithField("outcome", outcome).Info("Webhook processed")
	h.record(evt.Type, outcome)
	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (h *WebhookHandler) record(eventType, outcome string) {
	if h.metrics == nil {
		return
	}
	h.metrics.WebhookEventsTotal.WithLabelValues(eventType, outcome).Inc()
}
