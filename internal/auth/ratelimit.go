package auth

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// LoginLimiter throttles login attempts per key.
type LoginLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type redisLoginLimiter struct {
	client redis.Cmdable
	limit  int
	window time.Duration
}

// NewRedisLoginLimiter allows limit attempts per key within a fixed window.
func NewRedisLoginLimiter(client redis.Cmdable, limit int, window time.Duration) LoginLimiter {
	return &redisLoginLimiter{client: client, limit: limit, window: window}
}

func (l *redisLoginLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if l.limit <= 0 {
		return true, nil
	}
	redisKey := "login_attempts:" + key

	var incr *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKey)
		pipe.ExpireNX(ctx, redisKey, l.window)
		return nil
	})
	if err != nil {
		return false, err
	}
	return incr.Val() <= int64(l.limit), nil
}
