package storage

import (
	"context"
	"time"

	bolt "go.etcd.io/bbolt"
)

var fileBucket = []byte("softlock")

// FileBackend is a Backend persisted to a single bbolt file. It is the
// durable medium behind Default; entries survive process restarts.
type FileBackend struct {
	db *bolt.DB
}

// NewFileBackend opens (or creates) the bbolt file at path. Opening fails
// within a second when another process holds the file, so callers can fall
// back instead of blocking.
func NewFileBackend(path string) (*FileBackend, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(fileBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &FileBackend{db: db}, nil
}

// Get implements Backend.Get.
func (b *FileBackend) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	var value string
	var found bool
	err := b.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(fileBucket).Get([]byte(key)); v != nil {
			value = string(v)
			found = true
		}
		return nil
	})
	return value, found, err
}

// Set implements Backend.Set.
func (b *FileBackend) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(fileBucket).Put([]byte(key), []byte(value))
	})
}

// Delete implements Backend.Delete.
func (b *FileBackend) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(fileBucket).Delete([]byte(key))
	})
}

// Path returns the location of the backing file.
func (b *FileBackend) Path() string {
	return b.db.Path()
}

// Close releases the backing file.
func (b *FileBackend) Close() error {
	return b.db.Close()
}
