package transaction

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	redisplatform "github.com/fatflowers/payportal/internal/platform/redis"
	"github.com/fatflowers/payportal/internal/repository"
	"github.com/fatflowers/payportal/pkg/config"
)

const seedTimeout = 10 * time.Second

// newAllocator picks the id allocator from allocator.driver. Redis is only
// dialled when selected.
func newAllocator(lc fx.Lifecycle, log *zap.SugaredLogger, cfg *config.Config, store repository.Store) (Allocator, error) {
	ctx, cancel := context.WithTimeout(context.Background(), seedTimeout)
	defer cancel()

	if cfg.Allocator.Driver == config.DriverRedis {
		client, err := redisplatform.Open(lc, log, cfg)
		if err != nil {
			return nil, err
		}
		return NewRedisAllocator(ctx, client, cfg.Allocator.Key, store)
	}
	return NewMemoryAllocator(ctx, store)
}

func asManager(s *Service) TransactionManager { return s }

type observerParams struct {
	fx.In
	Bus       *Bus
	Success   *SuccessHandlers
	Observers []Observer `group:"transaction_observers"`
}

// subscribeObservers wires the "transaction_observers" group onto the bus.
// Success handlers run last.
func subscribeObservers(p observerParams) {
	for _, o := range p.Observers {
		p.Bus.Subscribe(o)
	}
	p.Bus.Subscribe(p.Success)
}

// Module exposes the transaction service via Fx. Other modules contribute
// observers with AsObserver.
var Module = fx.Options(
	fx.Provide(
		NewBus,
		NewSuccessHandlers,
		newAllocator,
		NewService,
		asManager,
	),
	fx.Invoke(subscribeObservers),
)

// AsObserver annotates a constructor so its result joins the bus.
func AsObserver(ctor any) any {
	return fx.Annotate(ctor, fx.As(new(Observer)), fx.ResultTags(`group:"transaction_observers"`))
}
