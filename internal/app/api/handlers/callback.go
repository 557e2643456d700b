package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fatflowers/payportal/internal/app/service/transaction"
	"github.com/fatflowers/payportal/pkg/response"
)

// @Summary      Gateway callback
// @Description  Target of the payer's return from the gateway. Finds the transaction from the gateway parameters and verifies it.
// @Tags         Payment
// @Produce      json
// @Param        portal  path  string  true  "Portal code name"
// @Success      200  {object}  response.APIResponse[handlers.TransactionItem]
// @Router       /api/v1/payment/callback/{portal} [get]
// @Router       /api/v1/payment/callback/{portal} [post]
func ApiPaymentCallback(mgr transaction.TransactionManager, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := c.Request.ParseForm(); err != nil {
			badRequest(c, err.Error())
			return
		}
		ctx := c.Request.Context()
		tx, err := mgr.FromQueryParams(ctx, c.Param("portal"), c.Request.Form)
		if err != nil {
			respondError(c, log, err)
			return
		}
		tx, err = mgr.Verify(ctx, tx.ID)
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(toTransactionItem(ctx, mgr, tx)))
	}
}

func RegisterPaymentRoutes(r gin.IRouter, mgr transaction.TransactionManager, log *zap.SugaredLogger) {
	h := ApiPaymentCallback(mgr, log)
	r.GET("/callback/:portal", h)
	r.POST("/callback/:portal", h)
}
