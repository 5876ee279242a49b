package server

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	errx "github.com/taskchat/server/internal/core/error"
	logx "github.com/taskchat/server/pkg/logger"
)

// RateLimiter gates chat requests per user. Implementations must fail open:
// the limiter protects against runaway model spend, it is not a correctness
// dependency.
type RateLimiter interface {
	Allow(ctx context.Context, userID string) error
}

// NoopLimiter admits everything. Used when no redis is configured.
type NoopLimiter struct{}

func (NoopLimiter) Allow(context.Context, string) error { return nil }

// RateLimitConfig tunes the fixed-window redis limiter.
type RateLimitConfig struct {
	MaxRequests int           `envconfig:"RATE_LIMIT_MAX_REQUESTS" default:"20"`
	Window      time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`
}

// RedisLimiter counts chat requests per user in fixed windows using
// INCR + EXPIRE. Redis being down admits the request.
type RedisLimiter struct {
	client *goredis.Client
	max    int64
	window time.Duration
}

func NewRedisLimiter(client *goredis.Client, cfg RateLimitConfig) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		max:    int64(cfg.MaxRequests),
		window: cfg.Window,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, userID string) error {
	key := fmt.Sprintf("taskchat:ratelimit:%s:%d", userID, time.Now().Unix()/int64(l.window.Seconds()))

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		logx.Warn().Err(errx.WrapRedis(err)).Str("user_id", userID).Msg("rate limiter unavailable, admitting request")
		return nil
	}
	if count == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			logx.Warn().Err(err).Str("key", key).Msg("failed to set rate limit window expiry")
		}
	}
	if count > l.max {
		return errx.RateLimited("too many chat requests, slow down")
	}
	return nil
}
