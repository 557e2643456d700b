// Package backends wires the built-in gateway adapters into the registry at startup.
package backends

import (
	"fmt"
	"net/http"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fatflowers/payportal/internal/platform/gateway"
	"github.com/fatflowers/payportal/internal/platform/gateway/nextpay"
	"github.com/fatflowers/payportal/internal/platform/gateway/zibal"
	"github.com/fatflowers/payportal/pkg/config"
	"github.com/fatflowers/payportal/pkg/metrics"
)

// BuiltIn constructs every adapter shipped with the service, in display order.
func BuiltIn(cfg *config.Config) []gateway.Backend {
	return []gateway.Backend{
		nextpay.New(cfg.GatewayBaseURL(nextpay.Key)),
		zibal.New(cfg.GatewayBaseURL(zibal.Key)),
	}
}

// RegisterAll validates and registers the built-in adapters.
func RegisterAll(reg *gateway.Registry, cfg *config.Config) error {
	for _, b := range BuiltIn(cfg) {
		if err := b.Config().Validate(); err != nil {
			return fmt.Errorf("backend %s: %w", b.Key(), err)
		}
		if err := reg.Register(b); err != nil {
			return fmt.Errorf("backend %s: %w", b.Key(), err)
		}
	}
	return nil
}

func newHTTPClient(cfg *config.Config) *http.Client {
	return &http.Client{Timeout: cfg.Payment.GatewayTimeout}
}

func newClient(hc *http.Client, log *zap.SugaredLogger, m *metrics.PaymentMetrics) *gateway.Client {
	return gateway.NewClient(hc, log.Named("gateway"), m)
}

var Module = fx.Options(
	fx.Provide(
		gateway.NewRegistry,
		newHTTPClient,
		newClient,
	),
	fx.Invoke(RegisterAll),
)
