package shared

import (
	"context"
	"time"
)

// IdempotencyStore tracks processed command/request keys so that retried
// commands are de-duplicated instead of re-executed.
type IdempotencyStore interface {
	// MarkProcessed marks a key as processed with a TTL.
	// Returns true if the key was newly marked, false if it was already present.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// IsProcessed checks whether a key has already been processed
	IsProcessed(ctx context.Context, key string) (bool, error)
	// Close releases resources held by the store
	Close() error
}
