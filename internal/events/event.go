// Package events handles the gateway webhook events: the archived document
// shape and the asynchronous archiver that persists them off the request
// path for reconciliation.
package events

import (
	"context"
	"time"
)

// GatewayEvent is an archived copy of a webhook notification received from
// the payment gateway
type GatewayEvent struct {
	EventID         string    `bson:"event_id" json:"event_id"`
	Type            string    `bson:"type" json:"type"`
	GatewayIntentID string    `bson:"gateway_intent_id" json:"gateway_intent_id"`
	Payload         []byte    `bson:"payload" json:"payload"`
	ReceivedAt      time.Time `bson:"received_at" json:"received_at"`
}

// Archive persists gateway events for later reconciliation
type Archive interface {
	// Store saves a gateway event. Storing the same event ID twice is a
	// no-op so webhook redeliveries stay harmless.
	Store(ctx context.Context, event *GatewayEvent) error

	// GetByIntentID retrieves all archived events for a gateway intent,
	// newest first.
	GetByIntentID(ctx context.Context, gatewayIntentID string) ([]*GatewayEvent, error)
}
