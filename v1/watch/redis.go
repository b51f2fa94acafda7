package watch

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"
)

const redisChannelPrefix = "softlock:"

// RedisBus carries record changes across processes over Redis pub/sub.
// Events are transient by design: the record itself lives in the store, so a
// watcher that reconnects reads current state instead of replaying history.
type RedisBus struct {
	client  *redis.Client
	mu      sync.Mutex
	cancels map[string]map[chan []byte]context.CancelFunc
}

// NewRedisBus creates a new RedisBus using the provided client.
func NewRedisBus(client *redis.Client) *RedisBus {
	return &RedisBus{
		client:  client,
		cancels: make(map[string]map[chan []byte]context.CancelFunc),
	}
}

// Publish implements Bus.Publish.
func (b *RedisBus) Publish(ctx context.Context, key string, data []byte) error {
	return b.client.Publish(ctx, redisChannelPrefix+key, data).Err()
}

// Watch implements Bus.Watch.
func (b *RedisBus) Watch(ctx context.Context, key string) (chan []byte, error) {
	ps := b.client.Subscribe(ctx, redisChannelPrefix+key)
	return b.pump(ctx, key, ps)
}

// WatchPrefix implements Bus.WatchPrefix.
func (b *RedisBus) WatchPrefix(ctx context.Context, prefix string) (chan []byte, error) {
	ps := b.client.PSubscribe(ctx, redisChannelPrefix+prefix+"*")
	return b.pump(ctx, prefix, ps)
}

func (b *RedisBus) pump(ctx context.Context, key string, ps *redis.PubSub) (chan []byte, error) {
	ctx, cancel := context.WithCancel(ctx)
	ch := make(chan []byte, 1)

	b.mu.Lock()
	m := b.cancels[key]
	if m == nil {
		m = make(map[chan []byte]context.CancelFunc)
		b.cancels[key] = m
	}
	m[ch] = func() {
		cancel()
		_ = ps.Close()
	}
	b.mu.Unlock()

	go func() {
		// Dropping the registry entry here too covers watchers that end by
		// context cancellation instead of an explicit Unwatch.
		defer func() {
			if stop := b.drop(key, ch); stop != nil {
				stop()
			}
			close(ch)
		}()
		for {
			msg, err := ps.ReceiveMessage(ctx)
			if err != nil {
				return
			}
			select {
			case ch <- []byte(msg.Payload):
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

// Unwatch implements Bus.Unwatch.
func (b *RedisBus) Unwatch(ctx context.Context, key string, ch chan []byte) error {
	if cancel := b.drop(key, ch); cancel != nil {
		cancel()
	}
	return nil
}

func (b *RedisBus) drop(key string, ch chan []byte) context.CancelFunc {
	b.mu.Lock()
	defer b.mu.Unlock()
	m, ok := b.cancels[key]
	if !ok {
		return nil
	}
	cancel, ok := m[ch]
	if !ok {
		return nil
	}
	delete(m, ch)
	if len(m) == 0 {
		delete(b.cancels, key)
	}
	return cancel
}
