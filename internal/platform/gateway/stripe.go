package gateway

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"github.com/payment-intents-service/internal/config"
	"github.com/payment-intents-service/internal/domain/payment"
)

// StripeClient implements the Client interface against the Stripe API
type StripeClient struct {
	api    *client.API
	logger *slog.Logger
}

// NewStripeClient creates a gateway client authenticated with the configured
// secret key
func NewStripeClient(logger *slog.Logger, cfg *config.StripeConfig) *StripeClient {
	api := &client.API{}
	api.Init(cfg.SecretKey, nil)

	return &StripeClient{
		api:    api,
		logger: logger,
	}
}

// CreateIntent creates a new payment intent at the gateway
func (c *StripeClient) CreateIntent(ctx context.Context, amount int64, currency, paymentMethod string) (*IntentSnapshot, error) {
	params := &stripe.PaymentIntentParams{
		Params:        stripe.Params{Context: ctx},
		Amount:        stripe.Int64(amount),
		Currency:      stripe.String(currency),
		PaymentMethod: stripe.String(paymentMethod),
	}

	pi, err := c.api.PaymentIntents.New(params)
	if err != nil {
		c.logger.Error("Gateway create intent failed", "amount", amount, "error", err)
		return nil, newGatewayError("create", err)
	}

	return snapshotFromIntent(pi), nil
}

// ConfirmIntent confirms an existing payment intent at the gateway
func (c *StripeClient) ConfirmIntent(ctx context.Context, gatewayIntentID, paymentMethod string) (*IntentSnapshot, error) {
	params := &stripe.PaymentIntentConfirmParams{
		Params:        stripe.Params{Context: ctx},
		PaymentMethod: stripe.String(paymentMethod),
	}

	pi, err := c.api.PaymentIntents.Confirm(gatewayIntentID, params)
	if err != nil {
		c.logger.Error("Gateway confirm intent failed", "gateway_intent_id", gatewayIntentID, "error", err)
		return nil, newGatewayError("confirm", err)
	}

	return snapshotFromIntent(pi), nil
}

// UpdateIntent changes the amount of an existing payment intent at the gateway
func (c *StripeClient) UpdateIntent(ctx context.Context, gatewayIntentID string, amount int64) (*IntentSnapshot, error) {
	params := &stripe.PaymentIntentParams{
		Params: stripe.Params{Context: ctx},
		Amount: stripe.Int64(amount),
	}

	pi, err := c.api.PaymentIntents.Update(gatewayIntentID, params)
	if err != nil {
		c.logger.Error("Gateway update intent failed", "gateway_intent_id", gatewayIntentID, "amount", amount, "error", err)
		return nil, newGatewayError("update", err)
	}

	return snapshotFromIntent(pi), nil
}

// CancelIntent cancels an existing payment intent at the gateway
func (c *StripeClient) CancelIntent(ctx context.Context, gatewayIntentID string) (*IntentSnapshot, error) {
	params := &stripe.PaymentIntentCancelParams{
		Params: stripe.Params{Context: ctx},
	}

	pi, err := c.api.PaymentIntents.Cancel(gatewayIntentID, params)
	if err != nil {
		c.logger.Error("Gateway cancel intent failed", "gateway_intent_id", gatewayIntentID, "error", err)
		return nil, newGatewayError("cancel", err)
	}

	return snapshotFromIntent(pi), nil
}

// snapshotFromIntent maps the Stripe payment intent to the transient snapshot
func snapshotFromIntent(pi *stripe.PaymentIntent) *IntentSnapshot {
	return &IntentSnapshot{
		ID:           pi.ID,
		Status:       payment.Status(pi.Status),
		Amount:       pi.Amount,
		ClientSecret: pi.ClientSecret,
		CreatedAt:    time.Unix(pi.Created, 0).UTC(),
	}
}

// newGatewayError wraps a Stripe failure, preserving the gateway's error code
// and message when the rejection came from the remote side
func newGatewayError(op string, err error) *GatewayError {
	ge := &GatewayError{Op: op, Err: err}

	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		ge.Code = string(stripeErr.Code)
		ge.Message = stripeErr.Msg
	} else {
		ge.Message = err.Error()
	}

	return ge
}
