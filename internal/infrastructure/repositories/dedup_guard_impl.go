package repositories

import (
	"context"
	"sync"
	"time"

	"dao-ledger.backend/pkg/redis"
)

// MemoryDedupGuard remembers processed keys for the life of the process
type MemoryDedupGuard struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewMemoryDedupGuard() *MemoryDedupGuard {
	return &MemoryDedupGuard{seen: make(map[string]struct{})}
}

func (g *MemoryDedupGuard) Acquire(_ context.Context, key string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.seen[key]; ok {
		return false, nil
	}
	g.seen[key] = struct{}{}
	return true, nil
}

func (g *MemoryDedupGuard) Seen(_ context.Context, key string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.seen[key]
	return ok, nil
}

const redisDedupPrefix = "dao-ledger:verified:"

var (
	redisDedupSetNX  = redis.SetNX
	redisDedupExists = redis.Exists
)

// RedisDedupGuard shares processed keys between processes. A zero TTL keeps them forever.
type RedisDedupGuard struct {
	ttl time.Duration
}

func NewRedisDedupGuard(ttl time.Duration) *RedisDedupGuard {
	return &RedisDedupGuard{ttl: ttl}
}

func (g *RedisDedupGuard) Acquire(ctx context.Context, key string) (bool, error) {
	return redisDedupSetNX(ctx, redisDedupPrefix+key, "1", g.ttl)
}

func (g *RedisDedupGuard) Seen(ctx context.Context, key string) (bool, error) {
	return redisDedupExists(ctx, redisDedupPrefix+key)
}
