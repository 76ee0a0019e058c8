package repositories

import "context"

// KVStore is the durable key-value store wallets persist to.
// Get returns errors.ErrNotFound for a missing key.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// DedupGuard remembers which verifications were already processed
type DedupGuard interface {
	// Acquire marks key as seen and reports whether the caller was first
	Acquire(ctx context.Context, key string) (bool, error)
	Seen(ctx context.Context, key string) (bool, error)
}
