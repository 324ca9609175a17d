package middleware

import (
	"time"

	"twopc_backend/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-ID"

// RequestLogger tags each request with an id, puts a request scoped logger
// on the request context and logs the outcome.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(RequestIDHeader, id)

		l := logger.With("request_id", id)
		c.Request = c.Request.WithContext(logger.NewContext(c.Request.Context(), l))

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		args := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
			"ip", c.ClientIP(),
		}
		switch {
		case status >= 500:
			l.Error("request", args...)
		case status >= 400:
			l.Warn("request", args...)
		default:
			l.Info("request", args...)
		}
	}
}
