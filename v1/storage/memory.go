package storage

import (
	"context"
	"sync"
)

// MemoryBackend is a Backend held entirely in process memory.
type MemoryBackend struct {
	mu    sync.RWMutex
	items map[string]string
}

// NewMemoryBackend returns a new empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{items: make(map[string]string)}
}

var (
	sharedOnce   sync.Once
	sharedMemory *MemoryBackend
)

// SharedMemory returns the process-wide MemoryBackend used as the ambient
// fallback when no durable medium is available. All callers in the process
// see the same entries.
func SharedMemory() *MemoryBackend {
	sharedOnce.Do(func() {
		sharedMemory = NewMemoryBackend()
	})
	return sharedMemory
}

// Get implements Backend.Get.
func (b *MemoryBackend) Get(ctx context.Context, key string) (string, bool, error) {
	b.mu.RLock()
	v, ok := b.items[key]
	b.mu.RUnlock()
	return v, ok, nil
}

// Set implements Backend.Set.
func (b *MemoryBackend) Set(ctx context.Context, key, value string) error {
	b.mu.Lock()
	b.items[key] = value
	b.mu.Unlock()
	return nil
}

// Delete implements Backend.Delete.
func (b *MemoryBackend) Delete(ctx context.Context, key string) error {
	b.mu.Lock()
	delete(b.items, key)
	b.mu.Unlock()
	return nil
}
