// Package tracing installs the global OpenTelemetry tracer provider.
package tracing

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fatflowers/payportal/pkg/config"
)

const shutdownTimeout = 5 * time.Second

// NewProvider builds a batching provider that exports spans as JSON to w.
func NewProvider(ctx context.Context, cfg *config.Config, w io.Writer) (*sdktrace.TracerProvider, error) {
	opts := []stdouttrace.Option{stdouttrace.WithWriter(w)}
	if cfg.Env == config.EnvDev {
		opts = append(opts, stdouttrace.WithPrettyPrint())
	}
	exp, err := stdouttrace.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("stdout trace exporter: %w", err)
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", cfg.Tracing.ServiceName),
			attribute.String("deployment.environment", string(cfg.Env)),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("trace resource: %w", err)
	}
	return sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exp),
	), nil
}

// Setup registers the W3C propagators and, when tracing.enabled is set, a
// provider that is flushed on stop. Otherwise spans go to the no-op provider.
func Setup(lc fx.Lifecycle, log *zap.SugaredLogger, cfg *config.Config) error {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	if !cfg.Tracing.Enabled {
		return nil
	}

	tp, err := NewProvider(context.Background(), cfg, os.Stdout)
	if err != nil {
		return err
	}
	otel.SetTracerProvider(tp)
	log.Infow("tracing enabled", "service_name", cfg.Tracing.ServiceName)

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			defer cancel()
			return tp.Shutdown(ctx)
		},
	})
	return nil
}

var Module = fx.Options(
	fx.Invoke(Setup),
)
