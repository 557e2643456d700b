package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fatflowers/payportal/internal/app/service/portal"
	"github.com/fatflowers/payportal/internal/app/service/transaction"
	"github.com/fatflowers/payportal/internal/platform/gateway"
	"github.com/fatflowers/payportal/pkg/logctx"
	"github.com/fatflowers/payportal/pkg/response"
)

// PaymentFailure is the data of a payment_failed envelope.
type PaymentFailure struct {
	Code    string `json:"code"`
	Status  string `json:"status,omitempty"`
	Message string `json:"message"`
}

// errorCode maps a service error onto an envelope code.
func errorCode(err error) response.APIResponseCode {
	var perr *gateway.PaymentError
	switch {
	case errors.Is(err, transaction.ErrTransactionNotFound),
		errors.Is(err, transaction.ErrPortalNotFound),
		errors.Is(err, portal.ErrNotFound):
		return response.APIResponseCodeNotFound
	case errors.Is(err, transaction.ErrValidation),
		errors.Is(err, transaction.ErrNoGatewayID),
		errors.Is(err, gateway.ErrInvalidCallbackURL),
		errors.Is(err, gateway.ErrInvalidFlag),
		errors.Is(err, portal.ErrValidation):
		return response.APIResponseCodeBadRequest
	case errors.Is(err, portal.ErrExists), errors.Is(err, portal.ErrInUse):
		return response.APIResponseCodeConflict
	case errors.Is(err, gateway.ErrNotImplemented), errors.Is(err, gateway.ErrNotRegistered):
		return response.APIResponseCodeNotImplemented
	case errors.Is(err, gateway.ErrGatewayUnavailable):
		return response.APIResponseCodeGatewayError
	case errors.As(err, &perr):
		return response.APIResponseCodePaymentFailed
	default:
		return response.APIResponseCodeError
	}
}

func respondError(c *gin.Context, log *zap.SugaredLogger, err error) {
	code := errorCode(err)
	l := logctx.FromGin(c, log)
	if code == response.APIResponseCodeError {
		l.Errorw("request_failed", "path", c.FullPath(), "err", err)
	} else {
		l.Infow("request_rejected", "path", c.FullPath(), "code", code, "err", err)
	}

	var perr *gateway.PaymentError
	if code == response.APIResponseCodePaymentFailed && errors.As(err, &perr) {
		c.JSON(http.StatusOK, response.ErrorT(code, PaymentFailure{Code: perr.Code, Status: string(perr.Status), Message: perr.Error()}))
		return
	}
	c.JSON(http.StatusOK, response.ErrorT[any](code, err.Error()))
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, msg))
}
