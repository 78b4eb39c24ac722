package handler

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/payment-intents-service/internal/api/middleware"
	"github.com/payment-intents-service/internal/domain/payment"
	"github.com/payment-intents-service/internal/payments"
	"github.com/payment-intents-service/internal/platform/gateway"
)

// PaymentHandler handles HTTP requests for payment intent operations
type PaymentHandler struct {
	orchestrator payments.Orchestrator
	logger       *slog.Logger
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(logger *slog.Logger, orchestrator payments.Orchestrator) *PaymentHandler {
	return &PaymentHandler{
		orchestrator: orchestrator,
		logger:       logger,
	}
}

// Create handles creation of a new payment intent for the authenticated owner
func (h *PaymentHandler) Create(c *gin.Context) {
	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	ownerID := middleware.GetOwnerID(c)

	snap, err := h.orchestrator.CreatePaymentIntent(c.Request.Context(), req.Amount, ownerID)
	if err != nil {
		h.respondOrchestratorError(c, err)
		return
	}

	RespondCreated(c, mapSnapshotToResponse(snap))
}

// Confirm handles confirmation of an unconfirmed payment intent
func (h *PaymentHandler) Confirm(c *gin.Context) {
	snap, err := h.orchestrator.ConfirmPaymentIntent(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondOrchestratorError(c, err)
		return
	}

	RespondOK(c, mapSnapshotToResponse(snap))
}

// Update handles amending the amount of a payment intent
func (h *PaymentHandler) Update(c *gin.Context) {
	var req UpdatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	snap, err := h.orchestrator.UpdatePaymentIntent(c.Request.Context(), c.Param("id"), req.Amount)
	if err != nil {
		h.respondOrchestratorError(c, err)
		return
	}

	RespondOK(c, mapSnapshotToResponse(snap))
}

// Cancel handles cancellation of an unconfirmed payment intent
func (h *PaymentHandler) Cancel(c *gin.Context) {
	if err := h.orchestrator.CancelPaymentIntent(c.Request.Context(), c.Param("id")); err != nil {
		h.respondOrchestratorError(c, err)
		return
	}

	RespondNoContent(c)
}

// List returns all payment records belonging to the authenticated owner
func (h *PaymentHandler) List(c *gin.Context) {
	ownerID := middleware.GetOwnerID(c)

	records, err := h.orchestrator.ListMyPayments(c.Request.Context(), ownerID)
	if err != nil {
		h.respondOrchestratorError(c, err)
		return
	}

	response := PaymentListResponse{Payments: make([]PaymentRecordResponse, 0, len(records))}
	for _, rec := range records {
		response.Payments = append(response.Payments, mapRecordToResponse(rec))
	}

	RespondOK(c, response)
}

// respondOrchestratorError maps orchestrator errors to HTTP status codes
func (h *PaymentHandler) respondOrchestratorError(c *gin.Context, err error) {
	var notFound payment.ErrRecordNotFound
	var conflict payment.ErrConcurrentModification
	var gatewayErr *gateway.GatewayError

	switch {
	case errors.Is(err, payment.ErrInvalidOwner):
		RespondUnauthorized(c, "Missing caller identity")
	case errors.Is(err, payment.ErrAmountTooLow):
		RespondBadRequest(c, "Amount is below the minimum chargeable amount")
	case errors.Is(err, payment.ErrInvalidID):
		RespondBadRequest(c, "Invalid payment ID")
	case errors.Is(err, payment.ErrInvalidGatewayID):
		RespondConflict(c, "Payment record has no usable gateway reference")
	case errors.Is(err, payment.ErrAlreadyConfirmed):
		RespondConflict(c, "Payment intent has already been confirmed")
	case errors.Is(err, payment.ErrAlreadyCompleted):
		RespondConflict(c, "Payment intent can no longer be canceled")
	case errors.As(err, &notFound):
		RespondNotFound(c, "Payment not found")
	case errors.As(err, &conflict):
		RespondConflict(c, "Payment was modified concurrently, retry the request")
	case errors.As(err, &gatewayErr):
		h.logger.Error("Gateway request failed",
			"op", gatewayErr.Op,
			"code", gatewayErr.Code,
			"error", err,
		)
		RespondBadGateway(c, gatewayErr.Message)
	default:
		h.logger.Error("Payment operation failed", "error", err)
		RespondInternalError(c)
	}
}

// mapSnapshotToResponse maps a gateway intent snapshot to a response DTO
func mapSnapshotToResponse(snap *gateway.IntentSnapshot) PaymentIntentResponse {
	return PaymentIntentResponse{
		ID:           snap.ID,
		Status:       string(snap.Status),
		Amount:       snap.Amount,
		ClientSecret: snap.ClientSecret,
		CreatedAt:    snap.CreatedAt.Format(time.RFC3339),
	}
}

// mapRecordToResponse maps a ledger record to a response DTO
func mapRecordToResponse(rec *payment.Record) PaymentRecordResponse {
	return PaymentRecordResponse{
		ID:              rec.ID.String(),
		GatewayIntentID: rec.GatewayIntentID,
		Status:          string(rec.Status),
		Amount:          rec.Amount,
		OwnerID:         rec.OwnerID,
		CreatedAt:       rec.CreatedAt.Format(time.RFC3339),
	}
}
