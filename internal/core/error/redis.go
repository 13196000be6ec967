package errx

import (
	"context"
	"errors"
	"net/http"

	"github.com/redis/go-redis/v9"
)

// WrapRedis maps Redis errors to the unified Error type with appropriate status codes.
// Callers must only pass a non-nil error.
func WrapRedis(err error) *Error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, redis.Nil):
		return New(err, http.StatusNotFound, RedisNotFoundMessage)
	case errors.Is(err, context.DeadlineExceeded):
		return New(err, http.StatusGatewayTimeout, RedisErrorMessage)
	default:
		return New(err, http.StatusBadGateway, RedisErrorMessage)
	}
}
