package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/panjf2000/ants/v2"
)

// Archiver persists gateway events asynchronously through a worker pool so
// that webhook acknowledgement never waits on the archive.
type Archiver struct {
	archive Archive
	pool    *ants.Pool
	logger  *slog.Logger
	timeout time.Duration
}

type ArchiverConfig struct {
	PoolSize     int
	StoreTimeout time.Duration
}

func NewArchiver(logger *slog.Logger, archive Archive, config ArchiverConfig) (*Archiver, error) {
	pool, err := ants.NewPool(config.PoolSize)
	if err != nil {
		return nil, err
	}

	timeout := config.StoreTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Archiver{
		archive: archive,
		pool:    pool,
		logger:  logger,
		timeout: timeout,
	}, nil
}

// Submit hands the event to the worker pool. The store runs with its own
// timeout, detached from the request context, so an acknowledged webhook
// keeps archiving after the HTTP response is written.
func (a *Archiver) Submit(event *GatewayEvent) error {
	err := a.pool.Submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()

		if err := a.archive.Store(ctx, event); err != nil {
			a.logger.Error("Failed to archive gateway event",
				"event_id", event.EventID,
				"type", event.Type,
				"error", err,
			)
		}
	})
	if err != nil {
		a.logger.Error("Failed to submit gateway event to worker pool",
			"event_id", event.EventID,
			"error", err,
		)
		return err
	}

	return nil
}

// Shutdown gracefully shuts down the worker pool.
func (a *Archiver) Shutdown() {
	a.logger.Info("Shutting down event archiver", "running_workers", a.pool.Running())
	a.pool.Release()
}

// Running returns the number of running workers in the pool.
func (a *Archiver) Running() int {
	return a.pool.Running()
}
