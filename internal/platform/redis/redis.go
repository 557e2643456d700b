// Package redis opens the shared Redis connection used for cross-replica id allocation.
package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fatflowers/payportal/pkg/config"
)

const pingTimeout = 5 * time.Second

// Open connects to cfg.Redis and verifies the connection. The client is closed on shutdown.
func Open(lc fx.Lifecycle, log *zap.SugaredLogger, cfg *config.Config) (*goredis.Client, error) {
	log.Infow("connecting to redis", "addr", cfg.Redis.Addr, "db", cfg.Redis.DB)
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Redis.Addr, err)
	}
	log.Infow("redis connection established")

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			log.Infow("closing redis connection")
			return client.Close()
		},
	})
	return client, nil
}
