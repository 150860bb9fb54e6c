package repo

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by a Backend when a key does not exist or has expired.
var ErrNotFound = errors.New("repo: key not found")

// Backend is the raw TTL key-value store under the MemoryStore. Values are opaque strings.
type Backend interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	// CountPrefix counts live keys starting with prefix.
	CountPrefix(ctx context.Context, prefix string) (int64, error)
	Ping(ctx context.Context) error
}
