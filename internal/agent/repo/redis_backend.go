package repo

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	errx "github.com/Chative-core-poc-v1/callcenter/internal/core/error"
	logx "github.com/Chative-core-poc-v1/callcenter/pkg/logger"
)

const scanBatch = 500

type RedisBackend struct {
	rdb redis.Cmdable
}

func NewRedisBackend(rdb redis.Cmdable) *RedisBackend {
	return &RedisBackend{rdb: rdb}
}

func (r *RedisBackend) Get(ctx context.Context, key string) (string, error) {
	v, err := r.rdb.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to read key from redis")
		return "", errx.WrapRedis(err)
	}
	return v, nil
}

// Set overwrites the value and resets its TTL. A non-positive ttl stores without expiry.
func (r *RedisBackend) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := r.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Dur("ttl", ttl).Msg("failed to write key to redis")
		return errx.WrapRedis(err)
	}
	return nil
}

func (r *RedisBackend) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := r.rdb.Del(ctx, keys...).Err(); err != nil {
		logx.Error().Err(err).Strs("keys", keys).Msg("failed to delete keys from redis")
		return errx.WrapRedis(err)
	}
	return nil
}

// CountPrefix iterates the keyspace with SCAN in batches of scanBatch.
func (r *RedisBackend) CountPrefix(ctx context.Context, prefix string) (int64, error) {
	var (
		cursor uint64
		total  int64
	)
	for {
		keys, next, err := r.rdb.Scan(ctx, cursor, prefix+"*", scanBatch).Result()
		if err != nil {
			logx.Error().Err(err).Str("prefix", prefix).Msg("failed to scan keys in redis")
			return 0, errx.WrapRedis(err)
		}
		total += int64(len(keys))
		if next == 0 {
			return total, nil
		}
		cursor = next
	}
}

func (r *RedisBackend) Ping(ctx context.Context) error {
	return errx.WrapRedis(r.rdb.Ping(ctx).Err())
}

var _ Backend = (*RedisBackend)(nil)
