package errx

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestKindStatusMessageOf(t *testing.T) {
	err := Validation("message must not be empty")
	assert.Equal(t, KindValidation, KindOf(err))
	assert.Equal(t, http.StatusBadRequest, StatusOf(err))
	assert.Equal(t, "message must not be empty", MessageOf(err))
}

func TestUnauthorized(t *testing.T) {
	err := Unauthorized("user id mismatch")
	assert.Equal(t, KindUnauthorized, KindOf(err))
	assert.Equal(t, http.StatusUnauthorized, StatusOf(err))
	assert.Equal(t, "user id mismatch", MessageOf(err))
}

func TestKindOfWrappedChain(t *testing.T) {
	inner := ContextNotFound("conversation not found")
	wrapped := fmt.Errorf("building context: %w", inner)

	assert.Equal(t, KindContextNotFound, KindOf(wrapped))
	assert.Equal(t, http.StatusNotFound, StatusOf(wrapped))
	assert.Equal(t, "conversation not found", MessageOf(wrapped))
}

func TestUnknownErrorDefaults(t *testing.T) {
	err := errors.New("some library error")
	assert.Equal(t, KindInternal, KindOf(err))
	assert.Equal(t, http.StatusInternalServerError, StatusOf(err))
	assert.Equal(t, SystemErrorMessage, MessageOf(err))
}

func TestIsMatchesByKind(t *testing.T) {
	err := NotFound("task 1 not found")
	assert.ErrorIs(t, err, NotFound("any message"))
	assert.NotErrorIs(t, err, Validation("x"))
}

func TestWrapStore(t *testing.T) {
	err := WrapStore(sql.ErrNoRows)
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Equal(t, http.StatusNotFound, StatusOf(err))

	err = WrapStore(errors.New("disk full"))
	assert.Equal(t, KindStore, KindOf(err))
	assert.Equal(t, http.StatusInternalServerError, StatusOf(err))
}

func TestWrapRedis(t *testing.T) {
	err := WrapRedis(redis.Nil)
	assert.Equal(t, KindNotFound, KindOf(err))

	err = WrapRedis(errors.New("connection refused"))
	assert.Equal(t, KindStore, KindOf(err))
	assert.Equal(t, http.StatusBadGateway, StatusOf(err))

	assert.Nil(t, WrapRedis(nil))
}

func TestWrapProvider(t *testing.T) {
	err := WrapProvider(context.DeadlineExceeded)
	assert.Equal(t, KindProviderTimeout, KindOf(err))
	assert.Equal(t, http.StatusGatewayTimeout, StatusOf(err))

	err = WrapProvider(fmt.Errorf("call: %w", context.Canceled))
	assert.Equal(t, KindProviderTimeout, KindOf(err))

	err = WrapProvider(errors.New("upstream 500"))
	assert.Equal(t, KindProviderError, KindOf(err))
	assert.Equal(t, http.StatusBadGateway, StatusOf(err))
}
