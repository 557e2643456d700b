package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fatflowers/payportal/pkg/config"
)

func newPaymentMetrics() (*PaymentMetrics, error) {
	return NewPaymentMetrics(prometheus.DefaultRegisterer)
}

// newHTTPMetrics returns nil when metrics_addr is empty.
func newHTTPMetrics(lc fx.Lifecycle, log *zap.SugaredLogger, cfg *config.Config) (*HTTPMetrics, error) {
	if cfg.MetricsAddr == "" {
		return nil, nil
	}
	hm, err := NewHTTPMetrics(prometheus.DefaultRegisterer, prometheus.DefaultGatherer, cfg.MetricsAddr, log)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			hm.Start()
			return nil
		},
		OnStop: hm.Stop,
	})
	return hm, nil
}

var Module = fx.Options(
	fx.Provide(newPaymentMetrics, newHTTPMetrics),
)
