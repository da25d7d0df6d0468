package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/bookstore/backend/internal/infrastructure/logger"
	"github.com/bookstore/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const bearerPrefix = "Bearer "

// APIKeyAuth guards the ERP callback API with a static bearer token. Requests
// are refused with 503 while no key is configured.
func APIKeyAuth(apiKey string) gin.HandlerFunc {
	expected := []byte(strings.TrimSpace(apiKey))
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		requestID := logger.RequestID(ctx)

		if len(expected) == 0 {
			logger.FromContext(ctx).Error("Shop API key is not configured")
			abort(c, dto.ErrCodeConfig, "API key is not configured", requestID)
			return
		}

		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, bearerPrefix) {
			abort(c, dto.ErrCodeUnauthorized, "Missing Bearer token", requestID)
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
		if token == "" {
			abort(c, dto.ErrCodeUnauthorized, "Missing Bearer token", requestID)
			return
		}
		if subtle.ConstantTimeCompare([]byte(token), expected) != 1 {
			logger.FromContext(ctx).Warn("Rejected request with invalid API key",
				zap.String("path", c.Request.URL.Path),
				zap.String("client_ip", c.ClientIP()),
			)
			abort(c, dto.ErrCodeUnauthorized, "Invalid API key", requestID)
			return
		}
		c.Next()
	}
}

func abort(c *gin.Context, code, message, requestID string) {
	c.AbortWithStatusJSON(dto.GetHTTPStatus(code), dto.NewErrorResponse(code, message, requestID))
}
