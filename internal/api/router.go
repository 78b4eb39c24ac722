package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/payment-intents-service/internal/api/handler"
	"github.com/payment-intents-service/internal/api/middleware"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	paymentHandler *handler.PaymentHandler,
	webhookHandler *handler.WebhookHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())

	// API v1 endpoints, all owner scoped
	v1 := r.Group("/api/v1", middleware.OwnerAuth())
	{
		paymentRoutes := v1.Group("/payments")
		{
			paymentRoutes.POST("", paymentHandler.Create)
			paymentRoutes.GET("", paymentHandler.List)
			paymentRoutes.POST("/:id/confirm", paymentHandler.Confirm)
			paymentRoutes.PATCH("/:id", paymentHandler.Update)
			paymentRoutes.DELETE("/:id", paymentHandler.Cancel)
		}
	}

	// Gateway webhooks authenticate by signature, not by owner header
	r.POST("/webhooks/stripe", webhookHandler.HandleStripeEvent)

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
