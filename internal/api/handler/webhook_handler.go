package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/payment-intents-service/internal/config"
	"github.com/payment-intents-service/internal/events"
)

const webhookMaxBodyBytes = int64(65536)

// WebhookHandler handles signed event notifications from the payment gateway
type WebhookHandler struct {
	archiver *events.Archiver
	cfg      *config.StripeConfig
	logger   *slog.Logger
}

// NewWebhookHandler creates a new gateway webhook handler
func NewWebhookHandler(logger *slog.Logger, cfg *config.StripeConfig, archiver *events.Archiver) *WebhookHandler {
	return &WebhookHandler{
		archiver: archiver,
		cfg:      cfg,
		logger:   logger,
	}
}

// HandleStripeEvent verifies the webhook signature, archives the event, and
// acknowledges receipt. Status transitions are not applied from webhooks; the
// confirm flow already mirrors the gateway's answer synchronously, so the
// archive exists for reconciliation.
func (h *WebhookHandler) HandleStripeEvent(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, webhookMaxBodyBytes)
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.logger.Error("Failed to read webhook payload", "error", err)
		RespondBadRequest(c, "Failed to read request body")
		return
	}

	// Archived payloads may carry any API version; only the signature matters here
	event, err := webhook.ConstructEventWithOptions(payload, c.GetHeader("Stripe-Signature"), h.cfg.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		h.logger.Error("Webhook signature verification failed", "error", err)
		RespondBadRequest(c, "Invalid webhook signature")
		return
	}

	switch event.Type {
	case "payment_intent.succeeded":
		h.logger.Info("Gateway reported payment success",
			"event_id", event.ID,
			"gateway_intent_id", intentIDFromEvent(event),
		)
	case "payment_intent.payment_failed":
		h.logger.Warn("Gateway reported payment failure",
			"event_id", event.ID,
			"gateway_intent_id", intentIDFromEvent(event),
		)
	default:
		h.logger.Info("Ignoring unhandled gateway event type",
			"event_id", event.ID,
			"type", string(event.Type),
		)
	}

	if err := h.archiver.Submit(&events.GatewayEvent{
		EventID:         event.ID,
		Type:            string(event.Type),
		GatewayIntentID: intentIDFromEvent(event),
		Payload:         payload,
		ReceivedAt:      time.Now().UTC(),
	}); err != nil {
		// The event is acknowledged anyway; the gateway retries delivery
		// and the archive store is best effort
		h.logger.Error("Failed to archive gateway event", "event_id", event.ID, "error", err)
	}

	RespondOK(c, gin.H{"received": true})
}

// intentIDFromEvent extracts the payment intent ID from the event payload
func intentIDFromEvent(event stripe.Event) string {
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(event.Data.Raw, &obj); err != nil {
		return ""
	}
	return obj.ID
}
