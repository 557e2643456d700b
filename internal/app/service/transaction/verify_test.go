package transaction

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"github.com/fatflowers/payportal/internal/models"
	"github.com/fatflowers/payportal/internal/platform/gateway"
	"github.com/fatflowers/payportal/pkg/types"
)

func TestVerify_Successful(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	tx := h.createShop(t)
	h.gw.on("/nextpay/verify", http.StatusOK, map[string]any{
		"code":            0,
		"amount":          50000,
		"card_holder":     "6037991234561234",
		"Shaparak_Ref_Id": "6541237890",
	})

	verified, err := h.svc.Verify(ctx, tx.ID)
	require.NoError(t, err)
	require.Equal(t, types.StatusSuccessful, verified.Status)
	require.Equal(t, "6037-9912-3456-1234", verified.CardHolder)
	require.Equal(t, "6541237890", verified.TrackingCode)
	require.NotNil(t, verified.LastVerifyAt)

	form := h.gw.lastForm("/nextpay/verify")
	require.Equal(t, "np-key", form.Get("api_key"))
	require.Equal(t, tx.GatewayID(), form.Get("trans_id"))
	require.Equal(t, "50000", form.Get("amount"))

	stored, err := h.store.GetTransaction(ctx, tx.ID)
	require.NoError(t, err)
	require.Equal(t, types.StatusSuccessful, stored.Status)

	post := h.events.events[len(h.events.events)-1]
	require.Equal(t, EventPostVerify, post.Name)
	require.Equal(t, types.StatusWaitingForPayment, post.PreviousStatus)
}

func TestVerify_TerminalIsNoop(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	tx := h.createShop(t)
	h.gw.on("/nextpay/verify", http.StatusOK, map[string]any{"code": 0})

	_, err := h.svc.Verify(ctx, tx.ID)
	require.NoError(t, err)
	again, err := h.svc.Verify(ctx, tx.ID)
	require.NoError(t, err)
	require.Equal(t, types.StatusSuccessful, again.Status)
	require.Equal(t, 1, h.gw.callCount("/nextpay/verify"))
	require.Equal(t,
		[]EventName{EventPreCreate, EventPostCreate, EventPreVerify, EventPostVerify, EventPreVerify, EventPostVerify},
		h.events.names())
}

func TestVerify_PendingStatusesAreResent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	tx := h.createShop(t)
	h.gw.on("/nextpay/verify", http.StatusOK, map[string]any{"code": -3})

	for i := 0; i < 2; i++ {
		got, err := h.svc.Verify(ctx, tx.ID)
		require.NoError(t, err)
		require.Equal(t, types.StatusWaitingForBank, got.Status)
		require.Empty(t, got.CardHolder)
	}
	require.Equal(t, 2, h.gw.callCount("/nextpay/verify"))
}

func TestVerify_HardFailureIsPersisted(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.gw.on("/zibal/request/lazy", http.StatusOK, map[string]any{"result": 100, "trackId": 4321})
	tx, err := h.svc.Create(ctx, &CreateRequest{PortalCode: "club", Amount: 1000, CallbackURI: "https://club.example/cb"})
	require.NoError(t, err)

	h.gw.on("/zibal/v1/verify", http.StatusOK, map[string]any{"result": 102})
	got, err := h.svc.Verify(ctx, tx.ID)
	require.NoError(t, err)
	require.Equal(t, types.StatusInvalidAPIKey, got.Status)

	stored, err := h.store.GetTransaction(ctx, tx.ID)
	require.NoError(t, err)
	require.Equal(t, types.StatusInvalidAPIKey, stored.Status)
	require.NotNil(t, stored.LastVerifyAt)
	require.Equal(t, "4321", stored.GatewayID())
}

func TestVerify_UnmappedCode(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	tx := h.createShop(t)
	h.gw.on("/nextpay/verify", http.StatusOK, map[string]any{"code": -33})

	_, err := h.svc.Verify(ctx, tx.ID)
	var perr *gateway.PaymentError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, "-33", perr.Code)

	stored, err := h.store.GetTransaction(ctx, tx.ID)
	require.NoError(t, err)
	require.Equal(t, types.StatusWaitingForPayment, stored.Status)
	require.Nil(t, stored.LastVerifyAt)
}

func TestVerify_TransportFailure(t *testing.T) {
	h := newHarness(t)
	tx := h.createShop(t)
	h.gw.on("/nextpay/verify", http.StatusServiceUnavailable, nil)

	_, err := h.svc.Verify(context.Background(), tx.ID)
	require.ErrorIs(t, err, gateway.ErrGatewayUnavailable)
}

func TestVerify_UnknownTransaction(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.Verify(context.Background(), 404)
	require.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestVerify_RunsSuccessHandlerOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	var paid []int64
	h.success.Register("order", func(_ context.Context, tx *models.Transaction) error {
		paid = append(paid, *tx.LinkedID)
		return nil
	})
	h.success.Register("invoice", func(context.Context, *models.Transaction) error {
		return errors.New("invoice service down")
	})

	order := h.createShop(t, func(r *CreateRequest) { r.LinkedType = lo.ToPtr("order"); r.LinkedID = lo.ToPtr(int64(77)) })
	invoice := h.createShop(t, func(r *CreateRequest) { r.LinkedType = lo.ToPtr("invoice"); r.LinkedID = lo.ToPtr(int64(5)) })
	h.gw.on("/nextpay/verify", http.StatusOK, map[string]any{"code": 0})

	_, err := h.svc.Verify(ctx, order.ID)
	require.NoError(t, err)
	_, err = h.svc.Verify(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, []int64{77}, paid)

	// a failing handler does not fail the verification
	got, err := h.svc.Verify(ctx, invoice.ID)
	require.NoError(t, err)
	require.Equal(t, types.StatusSuccessful, got.Status)
}

func TestRefund(t *testing.T) {
	cases := []struct {
		name string
		code int
		want types.Status
	}{
		{"refunded", -90, types.StatusRefunded},
		{"insufficient funds", -93, types.StatusRefundFailedInsufficientFund},
		{"unmapped", -12345, types.StatusRefundFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			tx := h.createShop(t)
			h.gw.on("/nextpay/verify", http.StatusOK, map[string]any{"code": tc.code})

			got, err := h.svc.Refund(context.Background(), tx.ID)
			require.NoError(t, err)
			require.Equal(t, tc.want, got.Status)
			require.NotNil(t, got.LastVerifyAt)
			require.Equal(t, "yes_money_back", h.gw.lastForm("/nextpay/verify").Get("refund_request"))

			post := h.events.events[len(h.events.events)-1]
			require.Equal(t, EventPostRefund, post.Name)
			require.Equal(t, http.StatusOK, post.Response.StatusCode)
		})
	}
}

func TestRefund_NotSupported(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.gw.on("/zibal/request/lazy", http.StatusOK, map[string]any{"result": 100, "trackId": 1})
	tx, err := h.svc.Create(ctx, &CreateRequest{PortalCode: "club", Amount: 1000, CallbackURI: "https://x.example/cb"})
	require.NoError(t, err)

	_, err = h.svc.Refund(ctx, tx.ID)
	require.ErrorIs(t, err, gateway.ErrNotImplemented)

	ok, err := h.svc.SupportRefund(ctx, "club")
	require.NoError(t, err)
	require.False(t, ok)
	ok, err = h.svc.SupportRefund(ctx, "shop")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestFromQueryParams(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	tx := h.createShop(t)

	got, err := h.svc.FromQueryParams(ctx, "shop", url.Values{"trans_id": {tx.GatewayID()}})
	require.NoError(t, err)
	require.Equal(t, tx.ID, got.ID)

	_, err = h.svc.FromQueryParams(ctx, "shop", url.Values{})
	require.ErrorIs(t, err, ErrTransactionNotFound)
	_, err = h.svc.FromQueryParams(ctx, "shop", url.Values{"trans_id": {"nope"}})
	require.ErrorIs(t, err, ErrTransactionNotFound)
	// zibal reads trackId, and the id belongs to another portal anyway
	_, err = h.svc.FromQueryParams(ctx, "club", url.Values{"trackId": {tx.GatewayID()}})
	require.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestRedirectURL(t *testing.T) {
	h := newHarness(t)
	tx := h.createShop(t)

	u, err := h.svc.RedirectURL(context.Background(), tx)
	require.NoError(t, err)
	require.Equal(t, h.gw.srv.URL+"/nextpay/payment/"+tx.GatewayID(), u)

	tx.TransactionID = nil
	_, err = h.svc.RedirectURL(context.Background(), tx)
	require.ErrorIs(t, err, ErrNoGatewayID)
}

func TestGetForUser(t *testing.T) {
	h := newHarness(t)
	tx := h.createShop(t)

	got, err := h.svc.GetForUser(context.Background(), "u-1", tx.ID)
	require.NoError(t, err)
	require.Equal(t, tx.ID, got.ID)

	_, err = h.svc.GetForUser(context.Background(), "u-2", tx.ID)
	require.ErrorIs(t, err, ErrTransactionNotFound)
}
