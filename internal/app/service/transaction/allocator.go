package transaction

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/fatflowers/payportal/internal/repository"
)

// Allocator hands out transaction ids before the create request is sent.
// Ids are unique and increasing across every caller sharing the allocator.
type Allocator interface {
	Next(ctx context.Context) (int64, error)
}

// MemoryAllocator serves a single process.
type MemoryAllocator struct {
	mu   sync.Mutex
	last int64
}

// NewMemoryAllocator starts counting after the highest id already stored.
func NewMemoryAllocator(ctx context.Context, store repository.TransactionRepository) (*MemoryAllocator, error) {
	last, err := store.MaxTransactionID(ctx)
	if err != nil {
		return nil, fmt.Errorf("seed allocator: %w", err)
	}
	return &MemoryAllocator{last: last}, nil
}

func (a *MemoryAllocator) Next(_ context.Context) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.last++
	return a.last, nil
}

// seedScript sets KEYS[1] to ARGV[1] unless it already holds a larger value.
var seedScript = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
local seed = tonumber(ARGV[1])
if seed > current then
	redis.call('SET', KEYS[1], seed)
	return seed
end
return current
`)

// RedisAllocator shares one counter between every replica.
type RedisAllocator struct {
	client redis.Cmdable
	key    string
}

func NewRedisAllocator(ctx context.Context, client redis.Cmdable, key string, store repository.TransactionRepository) (*RedisAllocator, error) {
	last, err := store.MaxTransactionID(ctx)
	if err != nil {
		return nil, fmt.Errorf("seed allocator: %w", err)
	}
	if err := seedScript.Run(ctx, client, []string{key}, last).Err(); err != nil {
		return nil, fmt.Errorf("seed redis counter %s: %w", key, err)
	}
	return &RedisAllocator{client: client, key: key}, nil
}

func (a *RedisAllocator) Next(ctx context.Context) (int64, error) {
	id, err := a.client.Incr(ctx, a.key).Result()
	if err != nil {
		return 0, fmt.Errorf("allocate transaction id: %w", err)
	}
	return id, nil
}
