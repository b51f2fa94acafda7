package watch

import (
	"context"
	"testing"
	"time"
)

func TestInMemoryBusPublishWatch(t *testing.T) {
	bus := NewInMemoryBus()
	ctx := context.Background()

	ch, err := bus.Watch(ctx, "my-lock/master-id/0")
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	if err := bus.Publish(ctx, "my-lock/master-id/0", []byte(`{"nonce":"n"}`)); err != nil {
		t.Fatalf("publish: %v", err)
	}
	select {
	case msg := <-ch:
		if string(msg) != `{"nonce":"n"}` {
			t.Fatalf("unexpected payload %s", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}

	if err := bus.Unwatch(ctx, "my-lock/master-id/0", ch); err != nil {
		t.Fatalf("unwatch: %v", err)
	}
	if _, ok := <-ch; ok {
		t.Fatal("expected channel closed after unwatch")
	}
}

func TestInMemoryBusPrefixCoversFamily(t *testing.T) {
	bus := NewInMemoryBus()
	ctx := context.Background()

	ch, err := bus.WatchPrefix(ctx, "my-lock/")
	if err != nil {
		t.Fatalf("watch prefix: %v", err)
	}
	if err := bus.Publish(ctx, "my-lock/session-id", []byte(`"s-1"`)); err != nil {
		t.Fatalf("publish: %v", err)
	}
	select {
	case msg := <-ch:
		if string(msg) != `"s-1"` {
			t.Fatalf("unexpected payload %s", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}

	if err := bus.Publish(ctx, "other-lock/session-id", []byte("null")); err != nil {
		t.Fatalf("publish: %v", err)
	}
	select {
	case msg := <-ch:
		t.Fatalf("unexpected event for foreign key: %s", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestInMemoryBusContextCancelUnwatches(t *testing.T) {
	bus := NewInMemoryBus()
	ctx, cancel := context.WithCancel(context.Background())

	if _, err := bus.Watch(ctx, "k"); err != nil {
		t.Fatalf("watch: %v", err)
	}
	cancel()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		bus.mu.Lock()
		n := len(bus.subs["k"])
		bus.mu.Unlock()
		if n == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("watcher not removed after context cancel")
}

func TestInMemoryBusConcurrentPublishUnwatch(t *testing.T) {
	bus := NewInMemoryBus()
	ctx := context.Background()

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-stop:
				return
			default:
				_ = bus.Publish(ctx, "k", []byte("x"))
			}
		}
	}()

	for i := 0; i < 500; i++ {
		ch, err := bus.Watch(ctx, "k")
		if err != nil {
			t.Fatalf("watch: %v", err)
		}
		if err := bus.Unwatch(ctx, "k", ch); err != nil {
			t.Fatalf("unwatch: %v", err)
		}
	}
	close(stop)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publisher did not finish")
	}
}

func TestInMemoryBusSlowWatcherDoesNotBlock(t *testing.T) {
	bus := NewInMemoryBus()
	ctx := context.Background()

	if _, err := bus.Watch(ctx, "k"); err != nil {
		t.Fatalf("watch: %v", err)
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			_ = bus.Publish(ctx, "k", []byte("x"))
		}
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow watcher")
	}
}
