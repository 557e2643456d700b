package gormlog

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/gorm/utils"

	"github.com/fatflowers/payportal/pkg/logctx"
)

// ZapLogger implements gorm.io/gorm/logger.Interface on top of a sugared zap
// logger; records carry trace_id and user_id via logctx.FromCtx.
type ZapLogger struct {
	base   *zap.SugaredLogger
	config gormlogger.Config
}

// New logs every statement; use LogMode to raise the threshold.
func New(base *zap.SugaredLogger) *ZapLogger {
	return &ZapLogger{
		base: base.Named("gorm"),
		config: gormlogger.Config{
			SlowThreshold:             500 * time.Millisecond,
			LogLevel:                  gormlogger.Info,
			IgnoreRecordNotFoundError: true,
		},
	}
}

// ForEnv returns a logger that only reports slow queries and errors outside dev.
func ForEnv(base *zap.SugaredLogger, dev bool) gormlogger.Interface {
	l := New(base)
	if dev {
		return l
	}
	return l.LogMode(gormlogger.Warn)
}

func (z *ZapLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cfg := z.config
	cfg.LogLevel = level
	return &ZapLogger{base: z.base, config: cfg}
}

func (z *ZapLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if z.config.LogLevel >= gormlogger.Info {
		logctx.FromCtx(ctx, z.base).Infow(msg, "args", data)
	}
}

func (z *ZapLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if z.config.LogLevel >= gormlogger.Warn {
		logctx.FromCtx(ctx, z.base).Warnw(msg, "args", data)
	}
}

func (z *ZapLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if z.config.LogLevel >= gormlogger.Error {
		logctx.FromCtx(ctx, z.base).Errorw(msg, "args", data)
	}
}

func (z *ZapLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if z.config.LogLevel == gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	lg := logctx.FromCtx(ctx, z.base)

	switch {
	case err != nil && z.config.LogLevel >= gormlogger.Error &&
		!(z.config.IgnoreRecordNotFoundError && errors.Is(err, gorm.ErrRecordNotFound)):
		sql, rows := fc()
		lg.Errorw("gorm_error", z.fields(sql, rows, elapsed, "err", err)...)
	case z.config.SlowThreshold > 0 && elapsed > z.config.SlowThreshold && z.config.LogLevel >= gormlogger.Warn:
		sql, rows := fc()
		lg.Warnw("gorm_slow", z.fields(sql, rows, elapsed, "threshold_ms", z.config.SlowThreshold.Milliseconds())...)
	case z.config.LogLevel >= gormlogger.Info:
		sql, rows := fc()
		lg.Debugw("gorm", z.fields(sql, rows, elapsed)...)
	}
}

func (z *ZapLogger) fields(sql string, rows int64, elapsed time.Duration, extra ...interface{}) []interface{} {
	return append([]interface{}{
		"sql", sql,
		"rows", rows,
		"elapsed_ms", elapsed.Milliseconds(),
		"caller", shortCaller(utils.FileWithLineNum()),
	}, extra...)
}

// shortCaller trims an absolute source path to the part below the module root,
// e.g. /src/payportal/internal/repository/postgres/store.go:38 becomes
// internal/repository/postgres/store.go:38.
func shortCaller(s string) string {
	if s == "" {
		return s
	}
	path, line := s, ""
	if idx := strings.LastIndex(s, ":"); idx >= 0 {
		path, line = s[:idx], s[idx:]
	}
	p := filepath.ToSlash(path)
	for _, marker := range []string{"/internal/", "/pkg/", "/cmd/"} {
		if i := strings.Index(p, marker); i >= 0 {
			return p[i+1:] + line
		}
	}
	parts := strings.Split(strings.TrimPrefix(p, "/"), "/")
	if n := len(parts); n > 3 {
		parts = parts[n-3:]
	}
	return strings.Join(parts, "/") + line
}
