package watch

import (
	"context"
	"strings"
	"sync"
)

// InMemoryBus is the process-local Bus. Delivery is best effort: a watcher
// whose buffer is full misses the event, it does not block the writer.
type InMemoryBus struct {
	mu         sync.Mutex
	subs       map[string][]chan []byte
	prefixSubs map[string][]chan []byte
}

// NewInMemoryBus creates a new InMemoryBus.
func NewInMemoryBus() *InMemoryBus {
	return &InMemoryBus{
		subs:       make(map[string][]chan []byte),
		prefixSubs: make(map[string][]chan []byte),
	}
}

// Publish implements Bus.Publish.
func (b *InMemoryBus) Publish(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// Sends stay under the lock: Unwatch closes channels while holding it,
	// so a send outside the critical section could hit a closed channel.
	// The default arm keeps the section bounded.
	b.mu.Lock()
	defer b.mu.Unlock()
	send := func(ch chan []byte) {
		select {
		case ch <- data:
		default:
		}
	}
	for _, ch := range b.subs[key] {
		send(ch)
	}
	for prefix, subs := range b.prefixSubs {
		if strings.HasPrefix(key, prefix) {
			for _, ch := range subs {
				send(ch)
			}
		}
	}
	return nil
}

// Watch implements Bus.Watch.
func (b *InMemoryBus) Watch(ctx context.Context, key string) (chan []byte, error) {
	return b.watch(ctx, key, b.subs)
}

// WatchPrefix implements Bus.WatchPrefix.
func (b *InMemoryBus) WatchPrefix(ctx context.Context, prefix string) (chan []byte, error) {
	return b.watch(ctx, prefix, b.prefixSubs)
}

func (b *InMemoryBus) watch(ctx context.Context, key string, reg map[string][]chan []byte) (chan []byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ch := make(chan []byte, 1)
	b.mu.Lock()
	reg[key] = append(reg[key], ch)
	b.mu.Unlock()
	if ctx.Done() != nil {
		go func() {
			<-ctx.Done()
			_ = b.Unwatch(context.Background(), key, ch)
		}()
	}
	return ch, nil
}

// Unwatch implements Bus.Unwatch.
func (b *InMemoryBus) Unwatch(ctx context.Context, key string, ch chan []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, reg := range []map[string][]chan []byte{b.subs, b.prefixSubs} {
		subs := reg[key]
		for i, c := range subs {
			if c == ch {
				subs[i] = subs[len(subs)-1]
				reg[key] = subs[:len(subs)-1]
				close(c)
				if len(reg[key]) == 0 {
					delete(reg, key)
				}
				return nil
			}
		}
	}
	return nil
}
