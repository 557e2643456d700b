package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fatflowers/payportal/internal/app/api/middleware"
	"github.com/fatflowers/payportal/internal/app/service/eventlog"
	"github.com/fatflowers/payportal/internal/app/service/portal"
	"github.com/fatflowers/payportal/internal/app/service/transaction"
	"github.com/fatflowers/payportal/internal/models"
	"github.com/fatflowers/payportal/internal/platform/gateway"
	"github.com/fatflowers/payportal/internal/platform/gateway/nextpay"
	"github.com/fatflowers/payportal/internal/platform/gateway/zibal"
	"github.com/fatflowers/payportal/internal/repository/memory"
	"github.com/fatflowers/payportal/pkg/config"
	"github.com/fatflowers/payportal/pkg/response"
)

// stubGateway answers every path with the payload set through on.
type stubGateway struct {
	srv     *httptest.Server
	mu      sync.Mutex
	answers map[string]any
}

func newStubGateway(t *testing.T) *stubGateway {
	g := &stubGateway{answers: map[string]any{}}
	g.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		g.mu.Lock()
		body, ok := g.answers[r.URL.Path]
		g.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(g.srv.Close)
	return g
}

func (g *stubGateway) on(path string, body any) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.answers[path] = body
}

type apiHarness struct {
	engine *gin.Engine
	store  *memory.Store
	gw     *stubGateway
	events *eventlog.Recorder
}

func newAPIHarness(t *testing.T) *apiHarness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()
	log := zap.NewNop().Sugar()
	gw := newStubGateway(t)

	store := memory.New()
	require.NoError(t, store.CreatePortal(ctx, &models.Portal{
		CodeName: "shop", Name: "Shop", Backend: nextpay.Key, APIKey: "np-key", DefaultCurrency: lo.ToPtr("IRR"),
	}))
	require.NoError(t, store.CreatePortal(ctx, &models.Portal{
		CodeName: "club", Name: "Club", Backend: zibal.Key, APIKey: "zb-merchant", DefaultCurrency: lo.ToPtr("IRR"),
	}))

	reg := gateway.NewRegistry()
	require.NoError(t, reg.Register(nextpay.New(gw.srv.URL+"/nextpay")))
	require.NoError(t, reg.Register(zibal.New(gw.srv.URL+"/zibal")))

	ids, err := transaction.NewMemoryAllocator(ctx, store)
	require.NoError(t, err)
	recorder := eventlog.NewRecorder(store, log)
	bus := transaction.NewBus(log, nil)
	bus.Subscribe(recorder)

	cfg := &config.Config{Payment: config.PaymentConfig{AmountStep: 1000}}
	mgr := transaction.NewService(cfg, log, store, reg, gateway.NewClient(nil, log, nil), bus, ids)
	portals := portal.NewService(store, reg, log)

	r := gin.New()
	r.Use(middleware.TraceMiddleware(), middleware.UserMiddleware())
	RegisterHealthRoutes(r, store)
	v1 := r.Group("/api/v1")
	RegisterPaymentRoutes(v1.Group("/payment"), mgr, log)
	RegisterAdminRoutes(v1.Group("/admin"), NewAdminHandler(mgr, portals, recorder, log))
	user := v1.Group("/")
	user.Use(middleware.RequireUser())
	RegisterTransactionRoutes(user, mgr, log)

	return &apiHarness{engine: r, store: store, gw: gw, events: recorder}
}

// do sends a request as user (empty for anonymous) and decodes the envelope into out.
func do[T any](t *testing.T, h *apiHarness, method, path, user string, body any) *response.APIResponse[T] {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set(middleware.HeaderUserID, user)
	}
	w := httptest.NewRecorder()
	h.engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var out response.APIResponse[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return &out
}

// startPayment creates a nextpay transaction for user through the public API.
func (h *apiHarness) startPayment(t *testing.T, user, token string) *TransactionItem {
	t.Helper()
	h.gw.on("/nextpay/token", map[string]any{"code": -1, "trans_id": token})
	res := do[*TransactionItem](t, h, http.MethodPost, "/api/v1/transaction", user, map[string]any{
		"portal_code":  "shop",
		"amount":       25000,
		"callback_uri": "https://shop.example/back",
		"phone":        "09120000000",
	})
	require.Equal(t, response.APIResponseCodeOK, res.Code)
	return res.Data
}
