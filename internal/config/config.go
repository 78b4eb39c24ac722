// Package config provides configuration structures and validation for the
// payment service. It handles environment-based configuration for the HTTP
// server, the ledger stores, the event stream, and the payment gateway.
package config

import (
	"errors"
	"strings"
	"time"
)

// Config holds the complete application configuration. Each field represents
// a major subsystem's configuration and is validated during startup.
type Config struct {
	Application ApplicationConfig
	Logging     LoggingConfig
	Server      ServerConfig
	Postgres    PostgresConfig
	MongoDB     MongoDBConfig
	Kafka       KafkaConfig
	Stripe      StripeConfig
	Payments    PaymentsConfig
	WorkerPool  WorkerPoolConfig
}

// ApplicationConfig contains general application configuration
type ApplicationConfig struct {
	Env  string
	Name string
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port            int           // Port to listen on
	ShutdownTimeout time.Duration // Grace period for server shutdown
	ReadTimeout     time.Duration // Maximum duration for reading entire request
	WriteTimeout    time.Duration // Maximum duration for writing response
	IdleTimeout     time.Duration // Maximum duration to wait for next request
}

// PostgresConfig contains PostgreSQL configuration
type PostgresConfig struct {
	URL             string        // Database connection string
	MaxConns        int32         // Maximum number of open connections
	MinConns        int32         // Maximum number of idle connections
	ConnMaxLifetime time.Duration // Maximum lifetime of a connection
	ConnMaxIdleTime time.Duration // Maximum idle time of a connection
	MigrationsPath  string        // Path to migration files
}

// MongoDBConfig contains MongoDB configuration for the gateway event archive
type MongoDBConfig struct {
	URI             string
	Database        string
	Timeout         time.Duration
	MaxPoolSize     uint64
	MinPoolSize     uint64
	MaxConnIdleTime time.Duration
}

// KafkaConfig contains Kafka configuration for payment lifecycle events
type KafkaConfig struct {
	Brokers           string
	PaymentTopic      string
	NumPartitions     int // Number of partitions for topics
	ReplicationFactor int // Replication factor for topics
	WriteTimeout      time.Duration
}

// StripeConfig contains credentials for the payment gateway
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string // Endpoint secret used to verify webhook signatures
}

// PaymentsConfig contains the orchestration constants
type PaymentsConfig struct {
	MinimumAmount int64  // Smallest accepted amount, in minor units
	Currency      string // Fixed currency code for created intents
	PaymentMethod string // Test payment-method token attached to create/confirm
}

// WorkerPoolConfig contains worker pool configuration for the event archiver
type WorkerPoolConfig struct {
	Size int // Maximum number of workers in the pool
}

// validate performs comprehensive validation of all configuration values,
// ensuring they meet minimum requirements and logical constraints
func (c *Config) validate() error {
	var validationErrors []string

	// Validate Server config
	if c.Server.Port <= 0 {
		validationErrors = append(validationErrors, "SERVER_PORT must be greater than 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_SHUTDOWN_TIMEOUT must be greater than 0")
	}
	if c.Server.ReadTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_READ_TIMEOUT must be greater than 0")
	}
	if c.Server.WriteTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_WRITE_TIMEOUT must be greater than 0")
	}
	if c.Server.IdleTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_IDLE_TIMEOUT must be greater than 0")
	}

	// Validate PostgreSQL config
	if c.Postgres.URL == "" {
		validationErrors = append(validationErrors, "POSTGRES_URL is required")
	}
	if c.Postgres.MaxConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONNS must be greater than 0")
	}
	if c.Postgres.MinConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MIN_CONNS must be greater than 0")
	}
	if c.Postgres.ConnMaxLifetime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_LIFETIME must be greater than 0")
	}
	if c.Postgres.ConnMaxIdleTime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_IDLE_TIME must be greater than 0")
	}

	// Validate MongoDB config
	if c.MongoDB.URI == "" {
		validationErrors = append(validationErrors, "MONGO_URI is required")
	}
	if c.MongoDB.Database == "" {
		validationErrors = append(validationErrors, "MONGO_DATABASE is required")
	}
	if c.MongoDB.Timeout <= 0 {
		validationErrors = append(validationErrors, "MONGO_TIMEOUT must be greater than 0")
	}
	if c.MongoDB.MaxPoolSize <= 0 {
		validationErrors = append(validationErrors, "MONGO_MAX_POOL_SIZE must be greater than 0")
	}
	if c.MongoDB.MinPoolSize <= 0 {
		validationErrors = append(validationErrors, "MONGO_MIN_POOL_SIZE must be greater than 0")
	}
	if c.MongoDB.MaxConnIdleTime <= 0 {
		validationErrors = append(validationErrors, "MONGO_MAX_CONN_IDLE_TIME must be greater than 0")
	}

	// Validate Kafka config
	if len(c.Kafka.Brokers) == 0 {
		validationErrors = append(validationErrors, "KAFKA_BROKERS is required")
	}
	if c.Kafka.PaymentTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_PAYMENT_TOPIC is required")
	}
	if c.Kafka.WriteTimeout <= 0 {
		validationErrors = append(validationErrors, "KAFKA_WRITE_TIMEOUT must be greater than 0")
	}

	// Validate Stripe config
	if c.Stripe.SecretKey == "" {
		validationErrors = append(validationErrors, "STRIPE_SECRET_KEY is required")
	}

	// Validate Payments config
	if c.Payments.MinimumAmount <= 0 {
		validationErrors = append(validationErrors, "PAYMENT_MIN_AMOUNT must be greater than 0")
	}
	if c.Payments.Currency == "" {
		validationErrors = append(validationErrors, "PAYMENT_CURRENCY is required")
	}
	if c.Payments.PaymentMethod == "" {
		validationErrors = append(validationErrors, "PAYMENT_METHOD is required")
	}

	// Validate WorkerPool config
	if c.WorkerPool.Size <= 0 {
		validationErrors = append(validationErrors, "WORKER_POOL_SIZE must be greater than 0")
	}

	if len(validationErrors) > 0 {
		return errors.New(strings.Join(validationErrors, ", "))
	}

	return nil
}
