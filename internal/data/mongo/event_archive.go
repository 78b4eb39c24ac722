package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/payment-intents-service/internal/events"
)

const (
	// EventCollectionName is the name of the gateway events collection in MongoDB
	EventCollectionName = "gateway_events"
)

// EventArchive implements the events.Archive interface for MongoDB
type EventArchive struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewEventArchive creates a new MongoDB gateway event archive
func NewEventArchive(logger *slog.Logger, db *mongo.Database) events.Archive {
	return &EventArchive{
		db:     db,
		logger: logger,
	}
}

// Store saves a gateway event, skipping duplicates by event ID so that
// webhook redeliveries do not produce extra documents.
func (r *EventArchive) Store(ctx context.Context, event *events.GatewayEvent) error {
	if event.EventID == "" {
		return errors.New("event ID cannot be empty")
	}

	collection := r.db.Collection(EventCollectionName)

	filter := bson.M{"event_id": event.EventID}
	count, err := collection.CountDocuments(ctx, filter)
	if err != nil {
		r.logger.Error("Failed to check for existing gateway event",
			"event_id", event.EventID,
			"error", err)
		return fmt.Errorf("failed to check for existing gateway event: %w", err)
	}
	if count > 0 {
		return nil
	}

	if _, err := collection.InsertOne(ctx, event); err != nil {
		r.logger.Error("Failed to store gateway event",
			"event_id", event.EventID,
			"type", event.Type,
			"error", err)
		return fmt.Errorf("failed to store gateway event: %w", err)
	}

	return nil
}

// GetByIntentID retrieves all archived events for a gateway intent.
// Results are sorted by receipt time in descending order (newest first).
func (r *EventArchive) GetByIntentID(ctx context.Context, gatewayIntentID string) ([]*events.GatewayEvent, error) {
	collection := r.db.Collection(EventCollectionName)

	filter := bson.M{"gateway_intent_id": gatewayIntentID}
	opts := options.Find().SetSort(bson.M{"received_at": -1})

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to get gateway events",
			"gateway_intent_id", gatewayIntentID,
			"error", err)
		return nil, fmt.Errorf("failed to get gateway events: %w", err)
	}
	defer cursor.Close(ctx)

	var archived []*events.GatewayEvent
	if err := cursor.All(ctx, &archived); err != nil {
		r.logger.Error("Failed to decode gateway events",
			"gateway_intent_id", gatewayIntentID,
			"error", err)
		return nil, fmt.Errorf("failed to decode gateway events: %w", err)
	}

	return archived, nil
}
