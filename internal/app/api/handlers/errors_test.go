package handlers

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fatflowers/payportal/internal/app/service/portal"
	"github.com/fatflowers/payportal/internal/app/service/transaction"
	"github.com/fatflowers/payportal/internal/platform/gateway"
	"github.com/fatflowers/payportal/pkg/response"
	"github.com/fatflowers/payportal/pkg/types"
)

func TestErrorCode(t *testing.T) {
	cases := []struct {
		err  error
		want response.APIResponseCode
	}{
		{fmt.Errorf("%w: 7", transaction.ErrTransactionNotFound), response.APIResponseCodeNotFound},
		{portal.ErrNotFound, response.APIResponseCodeNotFound},
		{fmt.Errorf("%w: %w", transaction.ErrValidation, gateway.ErrInvalidFlag), response.APIResponseCodeBadRequest},
		{gateway.ErrInvalidCallbackURL, response.APIResponseCodeBadRequest},
		{portal.ErrInUse, response.APIResponseCodeConflict},
		{fmt.Errorf("%w: zibal has no refund url", gateway.ErrNotImplemented), response.APIResponseCodeNotImplemented},
		{gateway.NotOK(nil, errors.New("dial tcp: refused")), response.APIResponseCodePaymentFailed},
		{gateway.NotOK(nil, fmt.Errorf("%w: timeout", gateway.ErrGatewayUnavailable)), response.APIResponseCodeGatewayError},
		{gateway.HardFailure("-91", types.StatusRefundFailed), response.APIResponseCodePaymentFailed},
		{errors.New("boom"), response.APIResponseCodeError},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, errorCode(tc.err), tc.err.Error())
	}
}
