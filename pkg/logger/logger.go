package logger

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fatflowers/payportal/pkg/config"
)

// New builds the process logger. JSON output in every env; dev also logs debug records.
func New(cfg *config.Config) (*zap.SugaredLogger, error) {
	zc := zap.NewProductionConfig()
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zc.EncoderConfig.TimeKey = "time"
	if cfg.Env == config.EnvDev {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	l, err := zc.Build()
	if err != nil {
		return nil, err
	}
	return l.Sugar().With("service", "payportal", "env", string(cfg.Env)), nil
}

func registerSync(lc fx.Lifecycle, l *zap.SugaredLogger) {
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			// stderr sync fails on some platforms; nothing to act on
			_ = l.Sync()
			return nil
		},
	})
}

var Module = fx.Options(
	fx.Provide(New),
	fx.Invoke(registerSync),
)
