package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/payment-intents-service/internal/config"
)

// PaymentEventProducer publishes payment lifecycle events to the payment
// topic, keyed by the local record id so events for one payment stay ordered
type PaymentEventProducer struct {
	logger *slog.Logger
	writer KafkaWriter // Interface for testability
	topic  string
}

// NewPaymentEventProducer creates the lifecycle-event producer and ensures the topic exists
func NewPaymentEventProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*PaymentEventProducer, error) {
	if cfg.PaymentTopic == "" {
		return nil, fmt.Errorf("kafka payment topic is not configured")
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for payment event producer: %w", err)
	}
	defer conn.Close()

	err = createKafkaTopicIfNotExists(conn, cfg.PaymentTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure payment topic %s exists: %w", cfg.PaymentTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.PaymentTopic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		Async:        true, // Lifecycle events are best effort; never block the request
		WriteTimeout: cfg.WriteTimeout,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Error("Failed to write messages asynchronously", "topic", cfg.PaymentTopic, "error", err, "count", len(messages))
			} else {
				logger.Debug("Successfully wrote messages asynchronously", "topic", cfg.PaymentTopic, "count", len(messages))
			}
		},
	}

	return &PaymentEventProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.PaymentTopic,
	}, nil
}

func (p *PaymentEventProducer) Publish(ctx context.Context, key string, value interface{}) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal payment event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: jsonValue,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish payment event",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish payment event to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published payment event",
		"topic", p.topic,
		"key", key,
	)
	return nil
}

func (p *PaymentEventProducer) Close() error {
	p.logger.Info("Closing payment event producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
