package storage

import (
	"context"
	stdErrors "errors"
	"time"

	redis "github.com/redis/go-redis/v9"

	softlockerrors "github.com/mirkobrombin/go-softlock/v1/errors"
)

const defaultRedisOpTimeout = 5 * time.Second

// RedisBackend implements Backend over a Redis server, for lock families
// shared across processes or hosts.
type RedisBackend struct {
	client  *redis.Client
	timeout time.Duration
}

// RedisOption configures a RedisBackend.
type RedisOption func(*redisOptions)

type redisOptions struct {
	timeout time.Duration
}

// WithTimeout sets the operation timeout for Redis calls.
func WithTimeout(d time.Duration) RedisOption {
	return func(o *redisOptions) {
		o.timeout = d
	}
}

// NewRedisBackend returns a new RedisBackend using the provided client.
func NewRedisBackend(client *redis.Client, opts ...RedisOption) *RedisBackend {
	o := redisOptions{timeout: defaultRedisOpTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	return &RedisBackend{client: client, timeout: o.timeout}
}

// Get implements Backend.Get.
func (b *RedisBackend) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, redisErr(err)
	}
	cctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	v, err := b.client.Get(cctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, redisErr(err)
	}
	return v, true, nil
}

// Set implements Backend.Set.
func (b *RedisBackend) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return redisErr(err)
	}
	cctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	if err := b.client.Set(cctx, key, value, 0).Err(); err != nil {
		return redisErr(err)
	}
	return nil
}

// Delete implements Backend.Delete.
func (b *RedisBackend) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return redisErr(err)
	}
	cctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	if err := b.client.Del(cctx, key).Err(); err != nil {
		return redisErr(err)
	}
	return nil
}

func redisErr(err error) error {
	if stdErrors.Is(err, context.DeadlineExceeded) {
		return softlockerrors.ErrTimeout
	}
	if stdErrors.Is(err, redis.ErrClosed) {
		return softlockerrors.ErrConnectionClosed
	}
	return err
}
