package app

import (
	"time"

	"go.uber.org/fx"

	"github.com/fatflowers/payportal/internal/app/api/server"
	"github.com/fatflowers/payportal/internal/app/service/eventlog"
	"github.com/fatflowers/payportal/internal/app/service/eventstream"
	"github.com/fatflowers/payportal/internal/app/service/portal"
	"github.com/fatflowers/payportal/internal/app/service/transaction"
	"github.com/fatflowers/payportal/internal/platform/db"
	"github.com/fatflowers/payportal/internal/platform/gateway/backends"
	"github.com/fatflowers/payportal/internal/platform/tracing"
	"github.com/fatflowers/payportal/pkg/config"
	"github.com/fatflowers/payportal/pkg/logger"
	"github.com/fatflowers/payportal/pkg/metrics"
)

const (
	DefaultStartTimeout = 15 * time.Second
	DefaultStopTimeout  = 10 * time.Second
)

var Module = fx.Options(
	logger.Module,
	config.Module,
	tracing.Module,
	metrics.Module,
	db.Module,
	backends.Module,
	transaction.Module,
	portal.Module,
	eventlog.Module,
	eventstream.Module,
	server.Module,
)
