package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	softlockerrors "github.com/mirkobrombin/go-softlock/v1/errors"
)

var tracer = otel.Tracer("github.com/mirkobrombin/go-softlock/v1/storage")

// Store is the abstract contract locks consume. Values are arbitrary
// serializable structures; nil stands for "no value".
type Store interface {
	// Get returns the value stored under key, or nil when the key is absent.
	Get(ctx context.Context, key string) (any, error)
	// Set stores value under key (nil clears the slot) and returns the value
	// observed by an immediate read-back, or nil when the read-back does not
	// deep-equal what was written.
	Set(ctx context.Context, key string, value any) (any, error)
	// Delete removes the key outright.
	Delete(ctx context.Context, key string) error
}

// Backend is a raw text key/value medium a KV writes through. Implementations
// must make a write visible to an immediately following Get from the same
// caller; nothing stronger is assumed.
type Backend interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Notifier receives the raw stored text of every verified write and clear.
// watch.Bus satisfies it.
type Notifier interface {
	Publish(ctx context.Context, key string, data []byte) error
}

// KV is the default Store: it serializes values to text through a Codec,
// writes them to a Backend and verifies every write by reading it straight
// back. A read-back that does not structurally match the written value makes
// Set report nil rather than fail.
type KV struct {
	backend      Backend
	codec        Codec
	notify       Notifier
	traceEnabled bool
}

// KVOption configures a KV.
type KVOption func(*KV)

// WithCodec replaces the default JSON codec.
func WithCodec(c Codec) KVOption {
	return func(s *KV) { s.codec = c }
}

// WithNotifier publishes the raw text of every verified write to n.
// Notification is best effort and never fails the write.
func WithNotifier(n Notifier) KVOption {
	return func(s *KV) { s.notify = n }
}

// WithTracing enables OpenTelemetry spans on Get and Set.
func WithTracing() KVOption {
	return func(s *KV) { s.traceEnabled = true }
}

// NewKV returns a verifying store over backend.
func NewKV(backend Backend, opts ...KVOption) *KV {
	s := &KV{backend: backend, codec: JSONCodec{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get implements Store.Get. Stored text that does not parse as structured
// data is returned as the raw string: data survives even when its shape
// does not.
func (s *KV) Get(ctx context.Context, key string) (any, error) {
	var span trace.Span
	if s.traceEnabled {
		ctx, span = tracer.Start(ctx, "KV.Get")
		defer span.End()
		span.SetAttributes(attribute.String("softlock.storage.key", key))
	}

	text, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("softlock: get %q: %w: %w", key, softlockerrors.ErrStorageUnavailable, err)
	}
	if !ok {
		if s.traceEnabled {
			span.SetAttributes(attribute.String("softlock.storage.result", "miss"))
		}
		return nil, nil
	}
	var v any
	if err := s.codec.Unmarshal([]byte(text), &v); err != nil {
		if s.traceEnabled {
			span.SetAttributes(attribute.String("softlock.storage.result", "degraded"))
		}
		return text, nil
	}
	if s.traceEnabled {
		span.SetAttributes(attribute.String("softlock.storage.result", "hit"))
	}
	return v, nil
}

// Set implements Store.Set.
func (s *KV) Set(ctx context.Context, key string, value any) (any, error) {
	var span trace.Span
	if s.traceEnabled {
		ctx, span = tracer.Start(ctx, "KV.Set")
		defer span.End()
		span.SetAttributes(attribute.String("softlock.storage.key", key))
	}

	if value == nil {
		if err := s.backend.Delete(ctx, key); err != nil {
			return nil, fmt.Errorf("softlock: clear %q: %w: %w", key, softlockerrors.ErrStorageUnavailable, err)
		}
		if _, ok, err := s.backend.Get(ctx, key); err != nil {
			return nil, fmt.Errorf("softlock: clear %q: %w: %w", key, softlockerrors.ErrStorageUnavailable, err)
		} else if ok {
			if s.traceEnabled {
				span.SetAttributes(attribute.String("softlock.storage.result", "mismatch"))
			}
			return nil, nil
		}
		if s.traceEnabled {
			span.SetAttributes(attribute.String("softlock.storage.result", "cleared"))
		}
		s.publish(ctx, key, []byte("null"))
		return nil, nil
	}

	data, err := s.codec.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("softlock: encode %q: %w", key, err)
	}
	if err := s.backend.Set(ctx, key, string(data)); err != nil {
		return nil, fmt.Errorf("softlock: set %q: %w: %w", key, softlockerrors.ErrStorageUnavailable, err)
	}

	text, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("softlock: set %q: %w: %w", key, softlockerrors.ErrStorageUnavailable, err)
	}
	var got any
	verified := ok
	if verified {
		var want any
		if err := s.codec.Unmarshal(data, &want); err != nil {
			return nil, fmt.Errorf("softlock: codec does not round-trip %q: %w", key, err)
		}
		if err := s.codec.Unmarshal([]byte(text), &got); err != nil {
			verified = false
		} else if !reflect.DeepEqual(want, got) {
			verified = false
		}
	}
	if !verified {
		if s.traceEnabled {
			span.SetAttributes(attribute.String("softlock.storage.result", "mismatch"))
		}
		return nil, nil
	}
	if s.traceEnabled {
		span.SetAttributes(attribute.String("softlock.storage.result", "verified"))
	}
	s.publish(ctx, key, []byte(text))
	return got, nil
}

// Delete implements Store.Delete.
func (s *KV) Delete(ctx context.Context, key string) error {
	if err := s.backend.Delete(ctx, key); err != nil {
		return fmt.Errorf("softlock: delete %q: %w: %w", key, softlockerrors.ErrStorageUnavailable, err)
	}
	s.publish(ctx, key, []byte("null"))
	return nil
}

func (s *KV) publish(ctx context.Context, key string, data []byte) {
	if s.notify == nil {
		return
	}
	_ = s.notify.Publish(ctx, key, data)
}

// Decode re-shapes a dynamic value returned by a Store into dst, which must
// be a pointer. It bridges the decoded forms a Store hands out and the
// concrete structs callers keep.
func Decode(v, dst any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}
