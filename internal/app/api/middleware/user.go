package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/fatflowers/payportal/pkg/logctx"
	"github.com/fatflowers/payportal/pkg/response"
)

// HeaderUserID carries the application user authenticated by the upstream proxy.
const HeaderUserID = "X-User-ID"

// UserMiddleware copies X-User-ID into the request context when present.
func UserMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if uid := strings.TrimSpace(c.GetHeader(HeaderUserID)); uid != "" {
			c.Set(logctx.KeyUserID, uid)
			c.Request = c.Request.WithContext(logctx.WithUserID(c.Request.Context(), uid))
		}
		c.Next()
	}
}

// RequireUser rejects requests without an authenticated user.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := logctx.UserID(c.Request.Context()); !ok {
			c.AbortWithStatusJSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeUnauthorized, "missing "+HeaderUserID+" header"))
			return
		}
		c.Next()
	}
}
