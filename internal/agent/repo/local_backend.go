package repo

import (
	"context"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
)

// LocalBackend keeps records in process memory. Used when no Redis is configured and in tests;
// records do not survive a restart and are not shared between replicas.
type LocalBackend struct {
	c *cache.Cache
}

func NewLocalBackend(cleanupInterval time.Duration) *LocalBackend {
	return &LocalBackend{c: cache.New(cache.NoExpiration, cleanupInterval)}
}

func (l *LocalBackend) Get(_ context.Context, key string) (string, error) {
	v, ok := l.c.Get(key)
	if !ok {
		return "", ErrNotFound
	}
	s, ok := v.(string)
	if !ok {
		return "", ErrNotFound
	}
	return s, nil
}

func (l *LocalBackend) Set(_ context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	l.c.Set(key, value, ttl)
	return nil
}

func (l *LocalBackend) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		l.c.Delete(k)
	}
	return nil
}

// CountPrefix counts unexpired items; Items already filters expired entries.
func (l *LocalBackend) CountPrefix(_ context.Context, prefix string) (int64, error) {
	var n int64
	for k := range l.c.Items() {
		if strings.HasPrefix(k, prefix) {
			n++
		}
	}
	return n, nil
}

func (l *LocalBackend) Ping(context.Context) error {
	return nil
}

var _ Backend = (*LocalBackend)(nil)
