package storage

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

var (
	defaultOnce  sync.Once
	defaultStore *KV
)

// Default returns the process-wide store used when a lock is created without
// an explicit one. It is backed by a file under the user cache directory so
// records survive restarts; when that file cannot be opened (no home, a
// read-only filesystem, or another process holding it) the store silently
// degrades to process memory.
func Default() *KV {
	defaultOnce.Do(func() {
		defaultStore = newDefault()
	})
	return defaultStore
}

func newDefault() *KV {
	backend, err := openDefaultFile()
	if err != nil {
		slog.Warn("softlock: default store falling back to memory", "error", err)
		return NewKV(SharedMemory())
	}
	return NewKV(backend)
}

func openDefaultFile() (*FileBackend, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return nil, err
	}
	dir = filepath.Join(dir, "softlock")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	return NewFileBackend(filepath.Join(dir, "softlock.db"))
}
