// Package presets assembles locks over common backends in one call. Each
// constructor wires the verifying store for you; anything it opens itself is
// tied to the returned lock's Close.
package presets

import (
	redis "github.com/redis/go-redis/v9"

	"github.com/mirkobrombin/go-softlock/v1/lock"
	"github.com/mirkobrombin/go-softlock/v1/storage"
)

// RedisOptions configures the connection to Redis.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// NewStandalone creates a lock over a fresh in-memory store with no external
// dependencies. Useful for local development and tests; locks built by
// separate NewStandalone calls do not see each other's slots.
func NewStandalone(name string, opts ...lock.Option) *lock.Lock {
	opts = append([]lock.Option{lock.WithStorage(storage.NewKV(storage.NewMemoryBackend()))}, opts...)
	return lock.New(name, opts...)
}

// NewRedis creates a lock coordinating through Redis. The connection is owned
// by the returned lock and closed with it.
func NewRedis(name string, ropts RedisOptions, opts ...lock.Option) *lock.Lock {
	client := redis.NewClient(&redis.Options{
		Addr:     ropts.Addr,
		Password: ropts.Password,
		DB:       ropts.DB,
	})
	opts = append([]lock.Option{
		lock.WithStorage(storage.NewKV(storage.NewRedisBackend(client))),
		lock.WithCloser(client),
	}, opts...)
	return lock.New(name, opts...)
}

// NewFile creates a lock coordinating through a file at path, so records
// survive restarts. The file is owned by the returned lock and closed with
// it.
func NewFile(name, path string, opts ...lock.Option) (*lock.Lock, error) {
	backend, err := storage.NewFileBackend(path)
	if err != nil {
		return nil, err
	}
	opts = append([]lock.Option{
		lock.WithStorage(storage.NewKV(backend)),
		lock.WithCloser(backend),
	}, opts...)
	return lock.New(name, opts...), nil
}
