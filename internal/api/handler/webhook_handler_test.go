package handler

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/payment-intents-service/internal/config"
	"github.com/payment-intents-service/internal/events"
)

const testWebhookSecret = "whsec_test_secret"

type stubArchive struct {
	stored chan *events.GatewayEvent
}

func (s *stubArchive) Store(ctx context.Context, event *events.GatewayEvent) error {
	s.stored <- event
	return nil
}

func (s *stubArchive) GetByIntentID(ctx context.Context, gatewayIntentID string) ([]*events.GatewayEvent, error) {
	return nil, nil
}

func setupWebhookRouter(t *testing.T, archive events.Archive) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	archiver, err := events.NewArchiver(logger, archive, events.ArchiverConfig{PoolSize: 1})
	require.NoError(t, err)
	t.Cleanup(archiver.Shutdown)

	h := NewWebhookHandler(logger, &config.StripeConfig{WebhookSecret: testWebhookSecret}, archiver)

	router := gin.New()
	router.POST("/webhooks/stripe", h.HandleStripeEvent)
	return router
}

// signPayload builds a Stripe-Signature header value for the given payload
func signPayload(payload []byte, secret string) string {
	timestamp := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", timestamp, payload)
	return fmt.Sprintf("t=%d,v1=%s", timestamp, hex.EncodeToString(mac.Sum(nil)))
}

func TestWebhookHandler_HandleStripeEvent(t *testing.T) {
	payload := []byte(`{
		"id": "evt_1",
		"type": "payment_intent.succeeded",
		"data": {"object": {"id": "pi_1", "object": "payment_intent"}}
	}`)

	t.Run("ValidSignatureArchivesEvent", func(t *testing.T) {
		archive := &stubArchive{stored: make(chan *events.GatewayEvent, 1)}
		router := setupWebhookRouter(t, archive)

		req, _ := http.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewReader(payload))
		req.Header.Set("Stripe-Signature", signPayload(payload, testWebhookSecret))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"received":true`)

		select {
		case event := <-archive.stored:
			assert.Equal(t, "evt_1", event.EventID)
			assert.Equal(t, "payment_intent.succeeded", event.Type)
			assert.Equal(t, "pi_1", event.GatewayIntentID)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for event to be archived")
		}
	})

	t.Run("InvalidSignature", func(t *testing.T) {
		archive := &stubArchive{stored: make(chan *events.GatewayEvent, 1)}
		router := setupWebhookRouter(t, archive)

		req, _ := http.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewReader(payload))
		req.Header.Set("Stripe-Signature", signPayload(payload, "whsec_wrong_secret"))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Empty(t, archive.stored)
	})

	t.Run("MissingSignature", func(t *testing.T) {
		archive := &stubArchive{stored: make(chan *events.GatewayEvent, 1)}
		router := setupWebhookRouter(t, archive)

		req, _ := http.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewReader(payload))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("UnhandledEventTypeStillArchived", func(t *testing.T) {
		otherPayload := []byte(`{
			"id": "evt_2",
			"type": "charge.refunded",
			"data": {"object": {"id": "ch_1", "object": "charge"}}
		}`)

		archive := &stubArchive{stored: make(chan *events.GatewayEvent, 1)}
		router := setupWebhookRouter(t, archive)

		req, _ := http.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewReader(otherPayload))
		req.Header.Set("Stripe-Signature", signPayload(otherPayload, testWebhookSecret))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		select {
		case event := <-archive.stored:
			assert.Equal(t, "charge.refunded", event.Type)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for event to be archived")
		}
	})
}
