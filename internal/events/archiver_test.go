package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingArchive struct {
	mu     sync.Mutex
	stored []*GatewayEvent
	err    error
	done   chan struct{}
}

func newRecordingArchive(err error) *recordingArchive {
	return &recordingArchive{err: err, done: make(chan struct{}, 16)}
}

func (r *recordingArchive) Store(ctx context.Context, event *GatewayEvent) error {
	r.mu.Lock()
	r.stored = append(r.stored, event)
	r.mu.Unlock()
	r.done <- struct{}{}
	return r.err
}

func (r *recordingArchive) GetByIntentID(ctx context.Context, gatewayIntentID string) ([]*GatewayEvent, error) {
	return nil, nil
}

func (r *recordingArchive) waitForStore(t *testing.T) {
	t.Helper()
	select {
	case <-r.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event to be stored")
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewArchiver(t *testing.T) {
	archiver, err := NewArchiver(testLogger(), newRecordingArchive(nil), ArchiverConfig{PoolSize: 2})

	require.NoError(t, err)
	require.NotNil(t, archiver)
	defer archiver.Shutdown()

	assert.Equal(t, 0, archiver.Running())
}

func TestArchiver_Submit(t *testing.T) {
	t.Run("StoresEvent", func(t *testing.T) {
		archive := newRecordingArchive(nil)
		archiver, err := NewArchiver(testLogger(), archive, ArchiverConfig{PoolSize: 2})
		require.NoError(t, err)
		defer archiver.Shutdown()

		event := &GatewayEvent{
			EventID:         "evt_1",
			Type:            "payment_intent.succeeded",
			GatewayIntentID: "pi_1",
			ReceivedAt:      time.Now().UTC(),
		}

		require.NoError(t, archiver.Submit(event))
		archive.waitForStore(t)

		archive.mu.Lock()
		defer archive.mu.Unlock()
		require.Len(t, archive.stored, 1)
		assert.Equal(t, "evt_1", archive.stored[0].EventID)
	})

	t.Run("StoreFailureIsSwallowed", func(t *testing.T) {
		archive := newRecordingArchive(errors.New("db error"))
		archiver, err := NewArchiver(testLogger(), archive, ArchiverConfig{PoolSize: 1})
		require.NoError(t, err)
		defer archiver.Shutdown()

		event := &GatewayEvent{EventID: "evt_2", Type: "payment_intent.payment_failed"}

		assert.NoError(t, archiver.Submit(event))
		archive.waitForStore(t)
	})

	t.Run("SubmitAfterShutdown", func(t *testing.T) {
		archive := newRecordingArchive(nil)
		archiver, err := NewArchiver(testLogger(), archive, ArchiverConfig{PoolSize: 1})
		require.NoError(t, err)
		archiver.Shutdown()

		err = archiver.Submit(&GatewayEvent{EventID: "evt_3"})

		assert.Error(t, err)
	})
}
