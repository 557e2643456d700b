package transaction

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fatflowers/payportal/internal/models"
	"github.com/fatflowers/payportal/internal/platform/gateway"
	"github.com/fatflowers/payportal/internal/platform/gateway/nextpay"
	"github.com/fatflowers/payportal/internal/platform/gateway/zibal"
	"github.com/fatflowers/payportal/internal/repository/memory"
	"github.com/fatflowers/payportal/pkg/config"
)

// fakeGateway answers gateway endpoints with canned payloads and records requests.
type fakeGateway struct {
	t      *testing.T
	srv    *httptest.Server
	mu     sync.Mutex
	routes map[string]func(form url.Values) (int, any)
	calls  map[string]int
	last   map[string]url.Values
}

func newFakeGateway(t *testing.T) *fakeGateway {
	g := &fakeGateway{
		t:      t,
		routes: map[string]func(url.Values) (int, any){},
		calls:  map[string]int{},
		last:   map[string]url.Values{},
	}
	g.srv = httptest.NewServer(http.HandlerFunc(g.serve))
	t.Cleanup(g.srv.Close)
	return g
}

func (g *fakeGateway) serve(w http.ResponseWriter, r *http.Request) {
	form := url.Values{}
	if r.Header.Get("Content-Type") == "application/json" {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		for k, v := range body {
			form.Set(k, gateway.ValueString(v))
		}
	} else {
		_ = r.ParseForm()
		form = r.PostForm
	}

	g.mu.Lock()
	g.calls[r.URL.Path]++
	g.last[r.URL.Path] = form
	route := g.routes[r.URL.Path]
	g.mu.Unlock()

	if route == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	code, body := route(form)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

func (g *fakeGateway) on(path string, code int, body any) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.routes[path] = func(url.Values) (int, any) { return code, body }
}

func (g *fakeGateway) callCount(path string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[path]
}

func (g *fakeGateway) totalCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return lo.Sum(lo.Values(g.calls))
}

func (g *fakeGateway) lastForm(path string) url.Values {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.last[path]
}

type countingAllocator struct {
	Allocator
	n atomic.Int64
}

func (c *countingAllocator) Next(ctx context.Context) (int64, error) {
	c.n.Add(1)
	return c.Allocator.Next(ctx)
}

type recorder struct {
	mu     sync.Mutex
	events []*Event
}

func (r *recorder) Notify(_ context.Context, ev *Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *ev
	if ev.Transaction != nil {
		tx := *ev.Transaction
		cp.Transaction = &tx
	}
	r.events = append(r.events, &cp)
	return nil
}

func (r *recorder) names() []EventName {
	r.mu.Lock()
	defer r.mu.Unlock()
	return lo.Map(r.events, func(e *Event, _ int) EventName { return e.Name })
}

type harness struct {
	svc     *Service
	store   *memory.Store
	gw      *fakeGateway
	ids     *countingAllocator
	events  *recorder
	success *SuccessHandlers
	cfg     *config.Config
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()
	gw := newFakeGateway(t)

	store := memory.New()
	require.NoError(t, store.CreatePortal(ctx, &models.Portal{
		CodeName: "shop", Name: "Shop", Backend: nextpay.Key, APIKey: "np-key", DefaultCurrency: lo.ToPtr("IRR"),
	}))
	require.NoError(t, store.CreatePortal(ctx, &models.Portal{
		CodeName: "club", Name: "Club", Backend: zibal.Key, APIKey: "zb-merchant", OrderIDPrefix: "CLB", DefaultCurrency: lo.ToPtr("IRR"),
	}))

	reg := gateway.NewRegistry()
	require.NoError(t, reg.Register(nextpay.New(gw.srv.URL+"/nextpay")))
	require.NoError(t, reg.Register(zibal.New(gw.srv.URL+"/zibal")))

	mem, err := NewMemoryAllocator(ctx, store)
	require.NoError(t, err)
	ids := &countingAllocator{Allocator: mem}

	log := zap.NewNop().Sugar()
	bus := NewBus(log, nil)
	events := &recorder{}
	bus.Subscribe(events)
	success := NewSuccessHandlers(log)
	bus.Subscribe(success)

	cfg := &config.Config{Payment: config.PaymentConfig{AmountStep: 1000}}
	svc := NewService(cfg, log, store, reg, gateway.NewClient(nil, log, nil), bus, ids)
	return &harness{svc: svc, store: store, gw: gw, ids: ids, events: events, success: success, cfg: cfg}
}

// createShop creates a nextpay transaction answered with a waiting_for_payment token.
func (h *harness) createShop(t *testing.T, mutate ...func(*CreateRequest)) *models.Transaction {
	t.Helper()
	h.gw.on("/nextpay/token", http.StatusOK, map[string]any{"code": -1, "trans_id": "np-token-" + lo.RandomString(6, lo.AlphanumericCharset)})
	req := &CreateRequest{
		PortalCode:  "shop",
		Amount:      50000,
		CallbackURI: "https://shop.example/callback",
		UserID:      lo.ToPtr("u-1"),
	}
	for _, m := range mutate {
		m(req)
	}
	tx, err := h.svc.Create(context.Background(), req)
	require.NoError(t, err)
	return tx
}
