package watch

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
)

func newRedisBus(t *testing.T) *RedisBus {
	t.Helper()
	addr := os.Getenv("SOFTLOCK_TEST_REDIS_ADDR")
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			t.Fatalf("miniredis run: %v", err)
		}
		t.Cleanup(mr.Close)
		addr = mr.Addr()
	} else {
		t.Logf("using real Redis at %s", addr)
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisBus(client)
}

func receive(t *testing.T, ch chan []byte, want string) {
	t.Helper()
	select {
	case msg := <-ch:
		if string(msg) != want {
			t.Fatalf("unexpected payload %s, want %s", msg, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timeout waiting for %s", want)
	}
}

func TestRedisBusPublishWatch(t *testing.T) {
	bus := newRedisBus(t)
	ctx := context.Background()

	ch, err := bus.Watch(ctx, "k")
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	// give the subscriber loop a moment to attach
	time.Sleep(100 * time.Millisecond)

	if err := bus.Publish(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("publish: %v", err)
	}
	receive(t, ch, "v")

	if err := bus.Unwatch(ctx, "k", ch); err != nil {
		t.Fatalf("unwatch: %v", err)
	}
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected channel drained and closed after unwatch")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after unwatch")
	}
}

func TestRedisBusWatchPrefix(t *testing.T) {
	bus := newRedisBus(t)
	ctx := context.Background()

	ch, err := bus.WatchPrefix(ctx, "my-lock/")
	if err != nil {
		t.Fatalf("watch prefix: %v", err)
	}
	time.Sleep(100 * time.Millisecond)

	if err := bus.Publish(ctx, "my-lock/master-id/2", []byte("null")); err != nil {
		t.Fatalf("publish: %v", err)
	}
	receive(t, ch, "null")
}
