package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-template-storefront/internal/logging"
)

// RequestIDHeader carries the correlation id of a request.
const RequestIDHeader = "X-Request-Id"

// RequestLogger assigns a request id when the caller sent none and logs one
// line per request.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	log := logging.OrNop(logger)
	return func(c *gin.Context) {
		start := time.Now()
		reqID := c.GetHeader(RequestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Header(RequestIDHeader, reqID)

		c.Next()

		log.Info("request",
			zap.String("request_id", reqID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
