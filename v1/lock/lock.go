package lock

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/mirkobrombin/go-softlock/v1/ambient"
	"github.com/mirkobrombin/go-softlock/v1/metrics"
	"github.com/mirkobrombin/go-softlock/v1/storage"
	"github.com/mirkobrombin/go-softlock/v1/token"
)

var tracer = otel.Tracer("github.com/mirkobrombin/go-softlock/v1/lock")

// ErrInvalidIndex reports a negative slot index.
var ErrInvalidIndex = errors.New("softlock: negative slot index")

// tokenLength is the length of minted identity tags and nonces.
const tokenLength = 32

// Lock coordinates ownership of named, indexed slots through a shared store.
// Two Locks with the same name on the same store address the same slots;
// whether they count as the same owner depends on their ephemeral and session
// identity, not on the instances themselves.
type Lock struct {
	name         string
	store        storage.Store
	state        *ambient.State
	mint         token.Source
	fresh        bool
	closer       io.Closer
	traceEnabled bool
	sessionOnce  singleflight.Group
}

// Option configures a Lock.
type Option func(*Lock)

// WithStorage replaces the default process-wide store. The injected store is
// shared and stays owned by the caller.
func WithStorage(st storage.Store) Option {
	return func(l *Lock) { l.store = st }
}

// WithAmbient replaces the default process-wide ambient state holding the
// ephemeral id. Tests inject isolated states to simulate separate processes.
func WithAmbient(state *ambient.State) Option {
	return func(l *Lock) { l.state = state }
}

// WithFreshIdentity deletes the ambient ephemeral id for the lock's name
// during construction. The next minted identity carries a new ephemeral id
// and compares unequal to every record already stored under the name, which
// fabricates a distinct caller even inside one process. The durable session
// id and the slots themselves are untouched.
func WithFreshIdentity() Option {
	return func(l *Lock) { l.fresh = true }
}

// WithTokenSource replaces the random token generator.
func WithTokenSource(src token.Source) Option {
	return func(l *Lock) { l.mint = src }
}

// WithCloser hands the Lock a resource whose lifetime should follow it;
// Close closes it. Presets use this to tie a backend they opened to the
// Lock they return.
func WithCloser(c io.Closer) Option {
	return func(l *Lock) { l.closer = c }
}

// WithTracing enables OpenTelemetry spans on Acquire and Release.
func WithTracing() Option {
	return func(l *Lock) { l.traceEnabled = true }
}

// New constructs a Lock. An empty name mints an anonymous one, which is
// effectively always uniquely owned.
func New(name string, opts ...Option) *Lock {
	l := &Lock{name: name, mint: token.New}
	for _, opt := range opts {
		opt(l)
	}
	if l.name == "" {
		l.name = uuid.NewString()
	}
	if l.store == nil {
		l.store = storage.Default()
	}
	if l.state == nil {
		l.state = ambient.Default()
	}
	if l.fresh {
		l.state.Delete(l.ephemeralKey())
	}
	return l
}

// Name returns the lock's name, minted or given.
func (l *Lock) Name() string { return l.name }

// Store returns the store the lock coordinates through.
func (l *Lock) Store() storage.Store { return l.store }

// Close releases any resource handed in with WithCloser. The default store
// is process-shared and never closed by a Lock.
func (l *Lock) Close() error {
	if l.closer != nil {
		return l.closer.Close()
	}
	return nil
}

func (l *Lock) masterKey(index int) string {
	return fmt.Sprintf("%s/master-id/%d", l.name, index)
}

func (l *Lock) sessionKey() string { return l.name + "/session-id" }

func (l *Lock) ephemeralKey() string { return l.name + "/ephemeral-id" }

// Acquire attempts to take or re-enter the slot at index. It returns the age
// of the owning record, clamped to at least one millisecond, and whether the
// caller holds the slot. expiry > 0 marks a stored record stale once its age
// exceeds it, letting the caller displace the previous owner; expiry <= 0
// never expires anything. A false result with nil error is the normal
// outcome when another identity owns the slot or a write failed its
// read-back verification.
func (l *Lock) Acquire(ctx context.Context, index int, expiry time.Duration) (time.Duration, bool, error) {
	if index < 0 {
		return 0, false, ErrInvalidIndex
	}
	var span trace.Span
	if l.traceEnabled {
		ctx, span = tracer.Start(ctx, "Lock.Acquire")
		defer span.End()
		span.SetAttributes(attribute.String("softlock.slot", l.masterKey(index)))
	}

	// One forced retry at most: the second pass writes a fresh record and
	// always resolves.
	force := false
	for {
		owner, err := l.getMasterID(ctx, index, force)
		if err != nil {
			return 0, false, err
		}
		if owner == nil {
			if l.traceEnabled {
				span.SetAttributes(attribute.String("softlock.result", "verify-failed"))
			}
			return 0, false, nil
		}

		candidate, err := l.newMasterID(ctx)
		if err != nil {
			return 0, false, err
		}
		elapsed := candidate.Now.Sub(owner.Now)

		if expiry > 0 && !force && absDuration(elapsed) > expiry {
			force = true
			metrics.StealCounter.Inc()
			if l.traceEnabled {
				span.SetAttributes(attribute.Bool("softlock.steal", true))
			}
			continue
		}

		if !sameOwner(owner, candidate) {
			metrics.AcquireLostCounter.Inc()
			if l.traceEnabled {
				span.SetAttributes(attribute.String("softlock.result", "lost"))
			}
			return 0, false, nil
		}
		if elapsed < time.Millisecond {
			elapsed = time.Millisecond
		}
		metrics.AcquireCounter.Inc()
		if l.traceEnabled {
			span.SetAttributes(
				attribute.String("softlock.result", "held"),
				attribute.Int64("softlock.age_ms", elapsed.Milliseconds()),
			)
		}
		return elapsed, true, nil
	}
}

// Release clears the slot at index unconditionally, whoever owns it. It
// returns true iff the verified round-trip shows the slot holding no owner;
// false signals the write did not verifiably take effect, not that the
// caller lacked ownership.
func (l *Lock) Release(ctx context.Context, index int) (bool, error) {
	if index < 0 {
		return false, ErrInvalidIndex
	}
	var span trace.Span
	if l.traceEnabled {
		ctx, span = tracer.Start(ctx, "Lock.Release")
		defer span.End()
		span.SetAttributes(attribute.String("softlock.slot", l.masterKey(index)))
	}

	metrics.ReleaseCounter.Inc()
	w, err := l.setMasterID(ctx, index, nil)
	if err != nil {
		return false, err
	}
	released := w != nil && w.Value == nil
	if l.traceEnabled {
		span.SetAttributes(attribute.Bool("softlock.released", released))
	}
	return released, nil
}

// getMasterID resolves the slot's current owner. When forced, or when the
// slot holds no usable record, the caller's own fresh identity is written
// and becomes the tentative owner. A nil owner with nil error means the
// write failed its read-back verification.
func (l *Lock) getMasterID(ctx context.Context, index int, force bool) (*MasterID, error) {
	if !force {
		v, err := l.store.Get(ctx, l.masterKey(index))
		if err != nil {
			return nil, err
		}
		if w := decodeWrapped(v); w != nil && w.Value != nil {
			return w.Value, nil
		}
	}
	id, err := l.newMasterID(ctx)
	if err != nil {
		return nil, err
	}
	w, err := l.setMasterID(ctx, index, id)
	if err != nil || w == nil {
		return nil, err
	}
	return w.Value, nil
}

// setMasterID stores id (nil to release) wrapped with a fresh nonce and
// returns the verified stored envelope, or nil when the read-back did not
// match what was written.
func (l *Lock) setMasterID(ctx context.Context, index int, id *MasterID) (*Wrapped, error) {
	nonce, err := l.mint(tokenLength)
	if err != nil {
		return nil, err
	}
	stored, err := l.store.Set(ctx, l.masterKey(index), Wrapped{Value: id, Nonce: nonce})
	if err != nil {
		return nil, err
	}
	if stored == nil {
		metrics.VerifyMismatchCounter.Inc()
		return nil, nil
	}
	return decodeWrapped(stored), nil
}

// newMasterID mints the caller's current identity: the instant, the
// process-scoped ephemeral id and the durable session id.
func (l *Lock) newMasterID(ctx context.Context) (*MasterID, error) {
	now := time.Now()
	eid, err := l.ephemeralID()
	if err != nil {
		return nil, err
	}
	sid, err := l.sessionID(ctx)
	if err != nil {
		return nil, err
	}
	return &MasterID{Now: now, EID: eid, SID: sid}, nil
}

// ephemeralID returns the ambient ephemeral id for the lock's name, minting
// it on first use. It never touches the pluggable store.
func (l *Lock) ephemeralID() (string, error) {
	if v, ok := l.state.Get(l.ephemeralKey()); ok {
		return v, nil
	}
	t, err := l.mint(tokenLength)
	if err != nil {
		return "", err
	}
	return l.state.GetOrSet(l.ephemeralKey(), t), nil
}

// sessionID returns the durable session id for the lock's name, minting and
// persisting it on first use. Concurrent first uses within the process share
// one mint. An id whose write failed verification stays empty, which marks
// the identity as having no durable session.
func (l *Lock) sessionID(ctx context.Context) (string, error) {
	v, err := l.store.Get(ctx, l.sessionKey())
	if err != nil {
		return "", err
	}
	if s, ok := v.(string); ok && s != "" {
		return s, nil
	}
	out, err, _ := l.sessionOnce.Do(l.sessionKey(), func() (any, error) {
		v, err := l.store.Get(ctx, l.sessionKey())
		if err != nil {
			return "", err
		}
		if s, ok := v.(string); ok && s != "" {
			return s, nil
		}
		t, err := l.mint(tokenLength)
		if err != nil {
			return "", err
		}
		stored, err := l.store.Set(ctx, l.sessionKey(), t)
		if err != nil {
			return "", err
		}
		s, _ := stored.(string)
		return s, nil
	})
	if err != nil {
		return "", err
	}
	return out.(string), nil
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
