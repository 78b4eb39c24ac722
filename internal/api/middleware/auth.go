package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	// OwnerIDHeader carries the authenticated caller identity. An upstream
	// gateway is expected to have validated it.
	OwnerIDHeader = "X-Owner-ID"

	// OwnerIDKey is the key used to store the owner ID in the context
	OwnerIDKey = "owner_id"
)

// OwnerAuth rejects requests that carry no caller identity. Payment routes
// are all owner scoped, so an anonymous request has nothing to act on.
func OwnerAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		ownerID := c.GetHeader(OwnerIDHeader)
		if ownerID == "" {
			correlationID := GetCorrelationID(c)

			response := gin.H{
				"error": gin.H{
					"code":    "UNAUTHORIZED",
					"message": "Missing " + OwnerIDHeader + " header",
				},
			}
			if correlationID != "" {
				response["correlation_id"] = correlationID
			}

			c.AbortWithStatusJSON(http.StatusUnauthorized, response)
			return
		}

		c.Set(OwnerIDKey, ownerID)
		c.Next()
	}
}

// GetOwnerID retrieves the authenticated owner ID from the gin context if present
func GetOwnerID(c *gin.Context) string {
	if id, exists := c.Get(OwnerIDKey); exists {
		if ownerID, ok := id.(string); ok {
			return ownerID
		}
	}
	return ""
}
