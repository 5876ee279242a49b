package errx

import (
	"errors"
	"net/http"

	"github.com/redis/go-redis/v9"
)

// WrapRedis maps Redis errors to the unified AppError type with appropriate status codes.
func WrapRedis(err error) *AppError {
	if err == nil {
		return nil
	}

	if errors.Is(err, redis.Nil) {
		return New(err, KindNotFound, http.StatusNotFound, "redis key not found")
	}

	return New(err, KindStore, http.StatusBadGateway, RedisErrorMessage)
}
