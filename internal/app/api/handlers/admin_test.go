package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"github.com/fatflowers/payportal/internal/models"
	"github.com/fatflowers/payportal/internal/platform/gateway"
	"github.com/fatflowers/payportal/internal/repository"
	"github.com/fatflowers/payportal/pkg/response"
	"github.com/fatflowers/payportal/pkg/types"
)

func TestAdminAPI_PortalLifecycle(t *testing.T) {
	h := newAPIHarness(t)

	backends := do[[]gateway.Choice](t, h, http.MethodGet, "/api/v1/admin/backends", "", nil)
	require.Equal(t, []string{"nextpay", "zibal"}, lo.Map(backends.Data, func(c gateway.Choice, _ int) string { return c.Key }))

	created := do[models.Portal](t, h, http.MethodPost, "/api/v1/admin/portals", "", map[string]any{
		"code_name": "store", "name": "Store", "backend": "zibal", "api_key": "secret", "amount_step": 100,
	})
	require.Equal(t, response.APIResponseCodeOK, created.Code)
	require.Equal(t, "store", created.Data.CodeName)

	dup := do[any](t, h, http.MethodPost, "/api/v1/admin/portals", "", map[string]any{
		"code_name": "store", "name": "Store", "backend": "zibal", "api_key": "secret",
	})
	require.Equal(t, response.APIResponseCodeConflict, dup.Code)

	invalid := do[any](t, h, http.MethodPost, "/api/v1/admin/portals", "", map[string]any{
		"code_name": "other", "name": "Other", "backend": "stripe", "api_key": "secret",
	})
	require.Equal(t, response.APIResponseCodeBadRequest, invalid.Code)

	updated := do[models.Portal](t, h, http.MethodPut, "/api/v1/admin/portals/store", "", map[string]any{
		"name": "Store 2", "backend": "nextpay",
	})
	require.Equal(t, response.APIResponseCodeOK, updated.Code)
	require.Equal(t, "nextpay", updated.Data.Backend)

	support := do[RefundSupport](t, h, http.MethodGet, "/api/v1/admin/portals/store/refund_support", "", nil)
	require.True(t, support.Data.SupportRefund)
	support = do[RefundSupport](t, h, http.MethodGet, "/api/v1/admin/portals/club/refund_support", "", nil)
	require.False(t, support.Data.SupportRefund)

	list := do[[]models.Portal](t, h, http.MethodGet, "/api/v1/admin/portals", "", nil)
	require.Len(t, list.Data, 3)

	deleted := do[any](t, h, http.MethodDelete, "/api/v1/admin/portals/store", "", nil)
	require.Equal(t, response.APIResponseCodeOK, deleted.Code)
	missing := do[any](t, h, http.MethodGet, "/api/v1/admin/portals/store", "", nil)
	require.Equal(t, response.APIResponseCodeNotFound, missing.Code)
}

func TestAdminAPI_PortalInUse(t *testing.T) {
	h := newAPIHarness(t)
	h.startPayment(t, "u-1", "tok-1")

	res := do[any](t, h, http.MethodDelete, "/api/v1/admin/portals/shop", "", nil)
	require.Equal(t, response.APIResponseCodeConflict, res.Code)
}

func TestAdminAPI_ScanRefundAndEvents(t *testing.T) {
	h := newAPIHarness(t)
	first := h.startPayment(t, "u-1", "tok-1")
	h.startPayment(t, "u-2", "tok-2")

	scan := do[repository.ScanResult](t, h, http.MethodPost, "/api/v1/admin/transactions/scan", "", map[string]any{
		"filters": []map[string]any{{"field": "transaction_id", "operator": "eq", "values": []any{"tok-1"}}},
	})
	require.Equal(t, response.APIResponseCodeOK, scan.Code)
	require.Equal(t, int64(1), scan.Data.Total)
	require.Equal(t, first.ID, scan.Data.Items[0].ID)

	bad := do[any](t, h, http.MethodPost, "/api/v1/admin/transactions/scan", "", map[string]any{
		"filters": []map[string]any{{"field": "api_key", "operator": "eq", "values": []any{"x"}}},
	})
	require.Equal(t, response.APIResponseCodeBadRequest, bad.Code)

	h.gw.on("/nextpay/verify", map[string]any{"code": -90})
	refunded := do[models.Transaction](t, h, http.MethodPost, fmt.Sprintf("/api/v1/admin/transactions/%d/refund", first.ID), "", nil)
	require.Equal(t, response.APIResponseCodeOK, refunded.Code)
	require.Equal(t, types.StatusRefunded, refunded.Data.Status)

	h.events.Wait()
	events := do[[]models.TransactionEventLog](t, h, http.MethodGet, fmt.Sprintf("/api/v1/admin/transactions/%d/events", first.ID), "", nil)
	require.ElementsMatch(t, []string{"post_create", "pre_refund", "post_refund"},
		lo.Map(events.Data, func(e models.TransactionEventLog, _ int) string { return e.Event }))

	missing := do[any](t, h, http.MethodGet, "/api/v1/admin/transactions/999/events", "", nil)
	require.Equal(t, response.APIResponseCodeNotFound, missing.Code)
}

func TestAdminAPI_Statuses(t *testing.T) {
	h := newAPIHarness(t)
	res := do[[]StatusChoice](t, h, http.MethodGet, "/api/v1/admin/statuses", "", nil)
	require.Len(t, res.Data, len(types.AllStatuses()))
	require.Equal(t, "Waiting for payment", res.Data[1].Label)
}
