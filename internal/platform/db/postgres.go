package db

import (
	"context"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/fatflowers/payportal/internal/repository"
	"github.com/fatflowers/payportal/internal/repository/memory"
	pgstore "github.com/fatflowers/payportal/internal/repository/postgres"
	cfgpkg "github.com/fatflowers/payportal/pkg/config"
	gormzap "github.com/fatflowers/payportal/pkg/gormlog"
)

func NewDB(l *zap.SugaredLogger, cfg *cfgpkg.Config) (*gorm.DB, error) {
	if cfg.Database.DSN == "" {
		l.Error("database DSN is empty")
		return nil, gorm.ErrInvalidDB
	}
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{
		Logger:         gormzap.ForEnv(l, cfg.Env == cfgpkg.EnvDev),
		TranslateError: true,
	})
	if err != nil {
		l.Errorf("failed to connect database: %v", err)
		return nil, err
	}
	l.Infow("connected to postgres via DSN")
	return db, nil
}

// NewStore opens the store selected by store.driver. The postgres store is
// migrated on startup and its pool is closed on shutdown.
func NewStore(lc fx.Lifecycle, l *zap.SugaredLogger, cfg *cfgpkg.Config) (repository.Store, error) {
	switch cfg.Store.Driver {
	case cfgpkg.DriverMemory:
		l.Warnw("using in-memory store; data is lost on restart")
		return memory.New(), nil
	case cfgpkg.DriverPostgres:
		gdb, err := NewDB(l, cfg)
		if err != nil {
			return nil, err
		}
		if err := AutoMigrate(l, gdb); err != nil {
			return nil, err
		}
		registerDBClose(lc, l, gdb)
		return pgstore.New(gdb), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

var Module = fx.Options(
	fx.Provide(NewStore),
)

// AutoMigrate runs GORM migrations on startup
func AutoMigrate(l *zap.SugaredLogger, db *gorm.DB) error {
	if err := pgstore.AutoMigrate(db); err != nil {
		l.Errorf("automigrate failed: %v", err)
		return err
	}
	l.Infow("automigrate completed")
	return nil
}

// registerDBClose ensures the underlying *sql.DB is closed on shutdown
func registerDBClose(lc fx.Lifecycle, l *zap.SugaredLogger, gdb *gorm.DB) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			sqlDB, err := gdb.DB()
			if err != nil {
				l.Warnw("gorm: get sql.DB failed", "err", err)
				return nil
			}
			l.Infow("closing postgres connection pool")
			return sqlDB.Close()
		},
	})
}
