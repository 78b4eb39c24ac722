package payment

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GatewayIntentPrefix is the identifier prefix the gateway assigns to payment
// intents. A record whose GatewayIntentID lacks it is not eligible for
// confirm, update, or cancel.
const GatewayIntentPrefix = "pi_"

// Status mirrors the gateway's last reported status for a payment intent.
type Status string

const (
	StatusRequiresConfirmation Status = "requires_confirmation"
	StatusSucceeded            Status = "succeeded"
	StatusCanceled             Status = "canceled"
)

// Validation errors raised by the orchestrator before any external call
var (
	ErrInvalidOwner     = errors.New("owner identifier is required")
	ErrAmountTooLow     = errors.New("amount is less than the minimum of 50 minor units")
	ErrInvalidID        = errors.New("invalid payment id")
	ErrInvalidGatewayID = errors.New("invalid gateway intent id")
	ErrAlreadyConfirmed = errors.New("payment is already confirmed")
	ErrAlreadyCompleted = errors.New("payment is already completed and cannot be canceled")
)

// Record is the local ledger entry mirroring one gateway payment intent
type Record struct {
	ID              uuid.UUID `json:"id"`
	GatewayIntentID string    `json:"gateway_intent_id"`
	Status          Status    `json:"status"`
	Amount          int64     `json:"amount"` // Stored in cents/minor units
	OwnerID         string    `json:"owner_id"`
	Version         int       `json:"version"` // For optimistic locking
	CreatedAt       time.Time `json:"created_at"`
}

// NewRecord creates a ledger record for a freshly created gateway intent.
// CreatedAt is the gateway's creation time, set once.
func NewRecord(amount int64, ownerID, gatewayIntentID string, status Status, createdAt time.Time) *Record {
	return &Record{
		ID:              uuid.New(),
		GatewayIntentID: gatewayIntentID,
		Status:          status,
		Amount:          amount,
		OwnerID:         ownerID,
		Version:         1,
		CreatedAt:       createdAt,
	}
}

// HasValidGatewayID reports whether the record carries a gateway identifier
// eligible for confirm, update, or cancel.
func (r *Record) HasValidGatewayID() bool {
	return strings.HasPrefix(r.GatewayIntentID, GatewayIntentPrefix)
}

// IsTerminal reports whether the record reached the terminal succeeded status
func (r *Record) IsTerminal() bool {
	return r.Status == StatusSucceeded
}

// ApplyStatus records the status the gateway last reported
func (r *Record) ApplyStatus(status Status) {
	r.Status = status
	r.Version++
}

// ApplyAmount records the amount the gateway last acknowledged
func (r *Record) ApplyAmount(amount int64) {
	r.Amount = amount
	r.Version++
}
