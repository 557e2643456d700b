package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fatflowers/payportal/internal/repository"
	"github.com/fatflowers/payportal/pkg/response"
)

const readyTimeout = 2 * time.Second

// @Summary      Health check
// @Description  Returns service status
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /healthz [get]
func Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, response.OKT(map[string]string{"status": "ok"}))
}

// @Summary      Readiness check
// @Description  Returns 503 while the transaction store is unreachable
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /readyz [get]
func Readyz(store repository.TransactionRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
		defer cancel()
		if _, err := store.MaxTransactionID(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(map[string]string{"status": "ready"}))
	}
}

func RegisterHealthRoutes(r gin.IRouter, store repository.TransactionRepository) {
	r.GET("/healthz", Healthz)
	r.GET("/readyz", Readyz(store))
}
