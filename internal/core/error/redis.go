package errx

import (
	"context"
	"errors"
	"net/http"

	"github.com/redis/go-redis/v9"
)

// RedisTimeoutMessage is used when a Redis call runs past its deadline.
const RedisTimeoutMessage = "redis operation timed out"

// WrapRedis maps Redis errors to AppError: a missing key becomes 404, a deadline 504 and
// anything else 502.
func WrapRedis(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, redis.Nil):
		return New(err, http.StatusNotFound, RedisNotFoundMessage)
	case errors.Is(err, context.DeadlineExceeded):
		return New(err, http.StatusGatewayTimeout, RedisTimeoutMessage)
	}
	return New(err, http.StatusBadGateway, RedisErrorMessage)
}
