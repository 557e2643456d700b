package tracing

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fatflowers/payportal/pkg/config"
)

func TestNewProvider_ExportsOnShutdown(t *testing.T) {
	var buf bytes.Buffer
	cfg := &config.Config{Env: config.EnvProd, Tracing: config.TracingConfig{Enabled: true, ServiceName: "payportal-test"}}

	tp, err := NewProvider(context.Background(), cfg, &buf)
	require.NoError(t, err)

	_, span := tp.Tracer("test").Start(context.Background(), "gateway.verify")
	span.End()
	require.NoError(t, tp.Shutdown(context.Background()))

	require.Contains(t, buf.String(), `"Name":"gateway.verify"`)
	require.Contains(t, buf.String(), "payportal-test")
}
