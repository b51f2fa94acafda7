package storage

import (
	"context"
	stdErrors "errors"

	nats "github.com/nats-io/nats.go"
)

// NATSBackend implements Backend over a JetStream key/value bucket.
type NATSBackend struct {
	kv nats.KeyValue
}

// NewNATSBackend binds to the named JetStream bucket on conn, creating the
// bucket when it does not exist yet.
func NewNATSBackend(conn *nats.Conn, bucket string) (*NATSBackend, error) {
	js, err := conn.JetStream()
	if err != nil {
		return nil, err
	}
	kv, err := js.KeyValue(bucket)
	if stdErrors.Is(err, nats.ErrBucketNotFound) {
		kv, err = js.CreateKeyValue(&nats.KeyValueConfig{Bucket: bucket})
	}
	if err != nil {
		return nil, err
	}
	return &NATSBackend{kv: kv}, nil
}

// Get implements Backend.Get.
func (b *NATSBackend) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	entry, err := b.kv.Get(encodeNATSKey(key))
	if stdErrors.Is(err, nats.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(entry.Value()), true, nil
}

// Set implements Backend.Set.
func (b *NATSBackend) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := b.kv.Put(encodeNATSKey(key), []byte(value))
	return err
}

// Delete implements Backend.Delete.
func (b *NATSBackend) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := b.kv.Purge(encodeNATSKey(key))
	if stdErrors.Is(err, nats.ErrKeyNotFound) {
		return nil
	}
	return err
}

// encodeNATSKey maps lock keys onto the JetStream key alphabet. Slashes are
// legal there, but keys must not begin or end with a separator, so a fixed
// prefix keeps arbitrary lock names valid.
func encodeNATSKey(key string) string {
	return "sl/" + key
}
