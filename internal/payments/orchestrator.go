// Package payments contains the payment-intent orchestration logic: the
// validation rules, the state-transition policy, and the call-ordering
// discipline between the payment gateway and the local ledger. Every
// operation follows the same order: validate, call the gateway, mutate the
// ledger, commit once. The gateway is the source of truth; the ledger is a
// best-effort mirror, and a commit failure after a successful gateway call
// is surfaced, never compensated.
package payments

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/payment-intents-service/internal/config"
	"github.com/payment-intents-service/internal/domain/payment"
	"github.com/payment-intents-service/internal/platform/gateway"
	"github.com/payment-intents-service/internal/platform/messaging/producers"
)

// Event types published after a successful commit
const (
	EventPaymentCreated   = "payment_intent.created"
	EventPaymentConfirmed = "payment_intent.confirmed"
	EventPaymentUpdated   = "payment_intent.updated"
	EventPaymentCanceled  = "payment_intent.canceled"
)

// PaymentEvent is the lifecycle notification emitted to the payment topic
type PaymentEvent struct {
	Type            string         `json:"type"`
	LocalID         string         `json:"local_id"`
	GatewayIntentID string         `json:"gateway_intent_id"`
	OwnerID         string         `json:"owner_id"`
	Amount          int64          `json:"amount"`
	Status          payment.Status `json:"status"`
	OccurredAt      time.Time      `json:"occurred_at"`
}

// Orchestrator defines the interface for payment-intent operations
type Orchestrator interface {
	// CreatePaymentIntent creates a new intent at the gateway and mirrors it
	// into the ledger. No local record is created if the gateway call fails.
	CreatePaymentIntent(ctx context.Context, amount int64, ownerID string) (*gateway.IntentSnapshot, error)

	// ConfirmPaymentIntent confirms an unconfirmed intent at the gateway and
	// mirrors the reported status. Returns ErrAlreadyConfirmed once the
	// record reached the terminal succeeded status.
	ConfirmPaymentIntent(ctx context.Context, localID string) (*gateway.IntentSnapshot, error)

	// UpdatePaymentIntent changes the intent amount at the gateway and
	// mirrors it locally. Status is left untouched.
	UpdatePaymentIntent(ctx context.Context, localID string, amount int64) (*gateway.IntentSnapshot, error)

	// CancelPaymentIntent cancels an unconfirmed intent at the gateway and
	// removes the ledger record. Absence of the record afterwards is the
	// success signal.
	CancelPaymentIntent(ctx context.Context, localID string) error

	// ListMyPayments returns all ledger records scoped to the owner.
	// An owner without payments gets an empty list.
	ListMyPayments(ctx context.Context, ownerID string) ([]*payment.Record, error)
}

// OrchestratorImpl implements the Orchestrator interface
type OrchestratorImpl struct {
	gateway gateway.Client
	ledgers payment.LedgerFactory
	events  producers.MessagePublisher
	cfg     config.PaymentsConfig
	logger  *slog.Logger
}

// NewOrchestrator creates a new payment orchestrator
func NewOrchestrator(
	logger *slog.Logger,
	cfg config.PaymentsConfig,
	gatewayClient gateway.Client,
	ledgers payment.LedgerFactory,
	events producers.MessagePublisher,
) Orchestrator {
	return &OrchestratorImpl{
		gateway: gatewayClient,
		ledgers: ledgers,
		events:  events,
		cfg:     cfg,
		logger:  logger,
	}
}

func (s *OrchestratorImpl) CreatePaymentIntent(ctx context.Context, amount int64, ownerID string) (*gateway.IntentSnapshot, error) {
	if ownerID == "" {
		return nil, payment.ErrInvalidOwner
	}
	if amount < s.cfg.MinimumAmount {
		return nil, payment.ErrAmountTooLow
	}

	snap, err := s.gateway.CreateIntent(ctx, amount, s.cfg.Currency, s.cfg.PaymentMethod)
	if err != nil {
		s.logger.Error("Failed to create payment intent at gateway",
			"owner_id", ownerID,
			"amount", amount,
			"error", err,
		)
		return nil, err
	}

	rec := payment.NewRecord(amount, ownerID, snap.ID, snap.Status, snap.CreatedAt)

	ledger := s.ledgers.NewLedger()
	ledger.Create(rec)
	if _, err := ledger.Commit(ctx); err != nil {
		// The intent exists at the gateway but not in the ledger; left for
		// reconciliation against the archived gateway events
		s.logger.Error("Ledger commit failed after gateway create",
			"gateway_intent_id", snap.ID,
			"owner_id", ownerID,
			"error", err,
		)
		return nil, err
	}

	s.logger.Info("Payment intent created",
		"local_id", rec.ID.String(),
		"gateway_intent_id", snap.ID,
		"owner_id", ownerID,
		"amount", amount,
		"status", string(snap.Status),
	)

	s.publishEvent(ctx, EventPaymentCreated, rec)
	return snap, nil
}

func (s *OrchestratorImpl) ConfirmPaymentIntent(ctx context.Context, localID string) (*gateway.IntentSnapshot, error) {
	id, err := parseLocalID(localID)
	if err != nil {
		return nil, err
	}

	ledger := s.ledgers.NewLedger()
	rec, err := ledger.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if rec.IsTerminal() {
		return nil, payment.ErrAlreadyConfirmed
	}
	if !rec.HasValidGatewayID() {
		return nil, payment.ErrInvalidGatewayID
	}

	snap, err := s.gateway.ConfirmIntent(ctx, rec.GatewayIntentID, s.cfg.PaymentMethod)
	if err != nil {
		s.logger.Error("Failed to confirm payment intent at gateway",
			"local_id", localID,
			"gateway_intent_id", rec.GatewayIntentID,
			"error", err,
		)
		return nil, err
	}

	rec.ApplyStatus(snap.Status)
	ledger.Update(rec)
	if _, err := ledger.Commit(ctx); err != nil {
		// Confirmed at the gateway but not mirrored locally; the record
		// still shows its pre-confirm status until reconciled
		s.logger.Error("Ledger commit failed after gateway confirm",
			"local_id", localID,
			"gateway_intent_id", rec.GatewayIntentID,
			"error", err,
		)
		return nil, err
	}

	s.logger.Info("Payment intent confirmed",
		"local_id", localID,
		"gateway_intent_id", rec.GatewayIntentID,
		"status", string(snap.Status),
	)

	s.publishEvent(ctx, EventPaymentConfirmed, rec)
	return snap, nil
}

func (s *OrchestratorImpl) UpdatePaymentIntent(ctx context.Context, localID string, amount int64) (*gateway.IntentSnapshot, error) {
	if amount < s.cfg.MinimumAmount {
		return nil, payment.ErrAmountTooLow
	}

	id, err := parseLocalID(localID)
	if err != nil {
		return nil, err
	}

	ledger := s.ledgers.NewLedger()
	rec, err := ledger.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !rec.HasValidGatewayID() {
		return nil, payment.ErrInvalidGatewayID
	}

	snap, err := s.gateway.UpdateIntent(ctx, rec.GatewayIntentID, amount)
	if err != nil {
		s.logger.Error("Failed to update payment intent at gateway",
			"local_id", localID,
			"gateway_intent_id", rec.GatewayIntentID,
			"amount", amount,
			"error", err,
		)
		return nil, err
	}

	// The caller's amount is authoritative; status keeps mirroring the
	// gateway's last report
	rec.ApplyAmount(amount)
	ledger.Update(rec)
	if _, err := ledger.Commit(ctx); err != nil {
		s.logger.Error("Ledger commit failed after gateway update",
			"local_id", localID,
			"gateway_intent_id", rec.GatewayIntentID,
			"error", err,
		)
		return nil, err
	}

	s.logger.Info("Payment intent updated",
		"local_id", localID,
		"gateway_intent_id", rec.GatewayIntentID,
		"amount", amount,
	)

	s.publishEvent(ctx, EventPaymentUpdated, rec)
	return snap, nil
}

func (s *OrchestratorImpl) CancelPaymentIntent(ctx context.Context, localID string) error {
	id, err := parseLocalID(localID)
	if err != nil {
		return err
	}

	ledger := s.ledgers.NewLedger()
	rec, err := ledger.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if !rec.HasValidGatewayID() {
		return payment.ErrInvalidGatewayID
	}
	// Cancellation is permitted only while unconfirmed
	if rec.Status != payment.StatusRequiresConfirmation {
		return payment.ErrAlreadyCompleted
	}

	if _, err := s.gateway.CancelIntent(ctx, rec.GatewayIntentID); err != nil {
		s.logger.Error("Failed to cancel payment intent at gateway",
			"local_id", localID,
			"gateway_intent_id", rec.GatewayIntentID,
			"error", err,
		)
		return err
	}

	ledger.Delete(rec)
	if _, err := ledger.Commit(ctx); err != nil {
		s.logger.Error("Ledger commit failed after gateway cancel",
			"local_id", localID,
			"gateway_intent_id", rec.GatewayIntentID,
			"error", err,
		)
		return err
	}

	s.logger.Info("Payment intent canceled",
		"local_id", localID,
		"gateway_intent_id", rec.GatewayIntentID,
	)

	s.publishEvent(ctx, EventPaymentCanceled, rec)
	return nil
}

func (s *OrchestratorImpl) ListMyPayments(ctx context.Context, ownerID string) ([]*payment.Record, error) {
	if ownerID == "" {
		return nil, payment.ErrInvalidOwner
	}

	ledger := s.ledgers.NewLedger()
	records, err := ledger.FindByOwner(ctx, ownerID)
	if err != nil {
		s.logger.Error("Failed to list payments", "owner_id", ownerID, "error", err)
		return nil, err
	}

	return records, nil
}

// publishEvent emits a lifecycle event after a successful commit. Publishing
// is best effort: a failure is logged and never turns a completed operation
// into an error.
func (s *OrchestratorImpl) publishEvent(ctx context.Context, eventType string, rec *payment.Record) {
	if s.events == nil {
		return
	}

	evt := PaymentEvent{
		Type:            eventType,
		LocalID:         rec.ID.String(),
		GatewayIntentID: rec.GatewayIntentID,
		OwnerID:         rec.OwnerID,
		Amount:          rec.Amount,
		Status:          rec.Status,
		OccurredAt:      time.Now().UTC(),
	}

	if err := s.events.Publish(ctx, evt.LocalID, evt); err != nil {
		s.logger.Error("Failed to publish payment event",
			"type", eventType,
			"local_id", evt.LocalID,
			"error", err,
		)
	}
}

// parseLocalID validates the caller-supplied record identifier
func parseLocalID(localID string) (uuid.UUID, error) {
	if localID == "" {
		return uuid.Nil, payment.ErrInvalidID
	}
	id, err := uuid.Parse(localID)
	if err != nil {
		return uuid.Nil, payment.ErrInvalidID
	}
	return id, nil
}
