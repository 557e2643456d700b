package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/fatflowers/payportal/pkg/logctx"
	"github.com/fatflowers/payportal/pkg/tool"
)

const HeaderRequestID = "X-Request-ID"

// TraceMiddleware adds a trace ID to the request context.
// It reads X-Request-ID if provided by the client; otherwise generates a UUIDv7.
func TraceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(HeaderRequestID)
		if traceID == "" {
			traceID = tool.GenerateUUIDV7()
		}

		c.Set(logctx.KeyTraceID, traceID)
		ctx := context.WithValue(c.Request.Context(), logctx.KeyTraceID, traceID)
		c.Request = c.Request.WithContext(ctx)
		c.Writer.Header().Set(HeaderRequestID, traceID)

		c.Next()
	}
}
