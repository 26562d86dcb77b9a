package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"alert-notification-service/internal/logging"
)

const (
	correlationHeader = "X-Correlation-ID"
	correlationKey    = "correlation_id"
)

// RequestLoggingMiddleware tags each request with a correlation id (taken from
// X-Correlation-ID or generated) and logs method, path, status and latency.
func RequestLoggingMiddleware(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		correlationID := c.GetHeader(correlationHeader)
		if correlationID == "" {
			correlationID = uuid.New().String()
		}
		c.Set(correlationKey, correlationID)
		c.Header(correlationHeader, correlationID)

		path := c.Request.URL.Path
		method := c.Request.Method
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()
		logger.WithCorrelation(correlationID).Infof("Request: %s %s, Status: %d, Latency: %v", method, path, status, latency)
	}
}

func correlationID(c *gin.Context) string {
	return c.GetString(correlationKey)
}
