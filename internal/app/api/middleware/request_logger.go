package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fatflowers/payportal/pkg/logctx"
)

// RequestLoggerMiddleware attaches a request-scoped logger enriched with
// trace_id and user_id (if present) to gin.Context and request context.
// It must run after TraceMiddleware and UserMiddleware.
func RequestLoggerMiddleware(base *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		reqLogger := base.With("trace_id", logctx.TraceID(ctx))
		if uid, ok := logctx.UserID(ctx); ok {
			reqLogger = reqLogger.With("user_id", uid)
		}

		c.Set(logctx.KeyLogger, reqLogger)
		c.Request = c.Request.WithContext(context.WithValue(ctx, logctx.KeyLogger, reqLogger))

		c.Next()
	}
}
