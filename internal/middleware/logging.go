package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const RequestIDHeader = "X-Request-ID"

// RequestLogger пишет одну строку на запрос. Query не логируем: там sessionToken.
func RequestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqID := c.GetHeader(RequestIDHeader)
		if _, err := uuid.Parse(reqID); err != nil {
			reqID = uuid.NewString()
		}
		c.Set("request_id", reqID)
		c.Header(RequestIDHeader, reqID)

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		entry := logger.WithFields(logrus.Fields{
			"request_id": reqID,
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"route":      path,
			"ip":         c.ClientIP(),
			"latency_ms": time.Since(start).Milliseconds(),
		})
		if len(c.Errors) > 0 {
			entry.WithError(c.Errors.Last()).Error("request")
			return
		}
		entry.Info("request")
	}
}
