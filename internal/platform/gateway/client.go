// Package gateway provides the client contract for the external payment
// gateway and its Stripe implementation. The client is a pure remote-call
// adapter: it performs no local validation and propagates every remote
// failure unchanged to the orchestrator.
package gateway

import (
	"context"
	"time"

	"github.com/payment-intents-service/internal/domain/payment"
)

// IntentSnapshot is the gateway's transient view of a payment intent,
// returned by every gateway operation. It is never persisted directly; it is
// used only to update the local record or to shape the immediate response.
type IntentSnapshot struct {
	ID           string
	Status       payment.Status
	Amount       int64
	ClientSecret string
	CreatedAt    time.Time
}

// Client exposes the four gateway operations used by the orchestrator.
// Calls are network operations: the request context carries timeout and
// cancellation, and no operation is retried here.
type Client interface {
	CreateIntent(ctx context.Context, amount int64, currency, paymentMethod string) (*IntentSnapshot, error)
	ConfirmIntent(ctx context.Context, gatewayIntentID, paymentMethod string) (*IntentSnapshot, error)
	UpdateIntent(ctx context.Context, gatewayIntentID string, amount int64) (*IntentSnapshot, error)
	CancelIntent(ctx context.Context, gatewayIntentID string) (*IntentSnapshot, error)
}

// GatewayError wraps a rejection or transport failure from the remote side
type GatewayError struct {
	Op      string // Gateway operation that failed
	Code    string // Gateway-assigned error code, when present
	Message string
	Err     error
}

func (e *GatewayError) Error() string {
	msg := "payment gateway " + e.Op + " failed"
	if e.Code != "" {
		msg += " [" + e.Code + "]"
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}
