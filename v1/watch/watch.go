// Package watch streams lock record changes to observers. Every verified
// write and clear made through a store wired with a Bus is published under its
// storage key, so dashboards and peers can follow ownership without polling.
// Locks themselves never consume these events; acquisition order comes from
// the store alone.
package watch

import "context"

// Bus fans record changes out to watchers. Payloads are the raw stored text
// of the record, or "null" for a clear.
type Bus interface {
	// Publish sends data to all watchers of key and to all watchers of a
	// prefix that covers key.
	Publish(ctx context.Context, key string, data []byte) error
	// Watch subscribes to changes of a single key. The returned channel
	// receives payloads until the context is canceled or Unwatch is called.
	Watch(ctx context.Context, key string) (chan []byte, error)
	// WatchPrefix subscribes to changes of every key under prefix. Watching
	// "<name>/" covers a whole lock family: its slots and its session id.
	WatchPrefix(ctx context.Context, prefix string) (chan []byte, error)
	// Unwatch stops delivering to ch. The key argument is the key or prefix
	// the channel was subscribed with.
	Unwatch(ctx context.Context, key string, ch chan []byte) error
}
