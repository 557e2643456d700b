package nextpay

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fatflowers/payportal/internal/models"
	"github.com/fatflowers/payportal/internal/platform/gateway"
	"github.com/fatflowers/payportal/pkg/types"
)

func TestNew_Endpoints(t *testing.T) {
	b := New("")
	cfg := b.Config()
	require.NoError(t, cfg.Validate())

	create, _ := cfg.URL(gateway.EndpointCreate)
	require.Equal(t, "https://nextpay.org/nx/gateway/token", create)
	verify, _ := cfg.URL(gateway.EndpointVerify)
	refund, _ := cfg.URL(gateway.EndpointRefund)
	require.Equal(t, verify, refund)
	require.True(t, cfg.SupportRefund())

	sandbox := New("http://127.0.0.1:9000/")
	redirect, _ := sandbox.Config().URL(gateway.EndpointRedirect)
	require.Equal(t, "http://127.0.0.1:9000/payment/{transaction_id}", redirect)
}

func TestErrorMapping(t *testing.T) {
	cfg := New("").Config()
	cases := map[string]types.Status{
		"0":   types.StatusSuccessful,
		"-1":  types.StatusWaitingForPayment,
		"-2":  types.StatusCanceledByUser,
		"-3":  types.StatusWaitingForBank,
		"-4":  types.StatusCanceledByUser,
		"-90": types.StatusRefunded,
		"-91": types.StatusRefundFailed,
		"-92": types.StatusRefundFailed,
		"-93": types.StatusRefundFailedInsufficientFund,
	}
	for code, want := range cases {
		got, ok := cfg.MapStatus(code)
		require.True(t, ok, code)
		require.Equal(t, want, got, code)
	}
	_, ok := cfg.MapStatus("-33")
	require.False(t, ok)
}

func TestCreateContext(t *testing.T) {
	b := New("")
	ctx, err := b.CreateContext(&gateway.CreateRequest{
		Transaction: &models.Transaction{},
		User:        &gateway.UserProfile{Phone: "09120000000", FullName: "Sara K"},
		Flags:       map[string]any{gateway.FlagAutoVerify: false},
	})
	require.NoError(t, err)
	require.Equal(t, map[string]any{"customer_phone": "09120000000", "payer_name": "Sara K"}, ctx)

	ctx, err = b.CreateContext(&gateway.CreateRequest{Flags: map[string]any{gateway.FlagAutoVerify: "yes"}})
	require.NoError(t, err)
	require.Equal(t, "yes", ctx[gateway.FlagAutoVerify])
}

func TestHeaders(t *testing.T) {
	require.Equal(t, "PostmanRuntime/7.26.8", New("").Headers(nil).Get("User-Agent"))
}

func TestRefundContext(t *testing.T) {
	gid := "t-1"
	ctx, err := New("").RefundContext(
		&models.Transaction{TransactionID: &gid, Amount: 50000, Currency: "IRT"},
		&models.Portal{APIKey: "k"},
	)
	require.NoError(t, err)
	require.Equal(t, "yes_money_back", ctx["refund_request"])
	require.Equal(t, "k", ctx["api_key"])
	require.Equal(t, "t-1", ctx["trans_id"])
}

func TestApplyVerifyResult_OnlyOnSuccess(t *testing.T) {
	b := New("")
	payload := map[string]any{"card_holder": "6037991234561234", "Shaparak_Ref_Id": "998877"}

	pending := &models.Transaction{}
	require.NoError(t, b.ApplyVerifyResult(pending, types.StatusCanceledByUser, payload))
	require.Empty(t, pending.CardHolder)
	require.Empty(t, pending.TrackingCode)

	paid := &models.Transaction{}
	require.NoError(t, b.ApplyVerifyResult(paid, types.StatusSuccessful, payload))
	require.Equal(t, "6037-9912-3456-1234", paid.CardHolder)
	require.Equal(t, "998877", paid.TrackingCode)
}
