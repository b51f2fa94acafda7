package storage_test

import (
	"context"
	"os"
	"testing"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"

	"github.com/mirkobrombin/go-softlock/v1/storage"
)

func newRedisBackend(t *testing.T) *storage.RedisBackend {
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
	return storage.NewRedisBackend(client)
}

func TestRedisBackendGetSetDelete(t *testing.T) {
	b := newRedisBackend(t)
	ctx := context.Background()

	if _, ok, err := b.Get(ctx, "k"); err != nil || ok {
		t.Fatalf("Get: expected absent, got ok=%v err=%v", ok, err)
	}
	if err := b.Set(ctx, "k", "v"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if v, ok, err := b.Get(ctx, "k"); err != nil || !ok || v != "v" {
		t.Fatalf("Get: expected v, got %q ok=%v err=%v", v, ok, err)
	}
	if err := b.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := b.Get(ctx, "k"); ok {
		t.Fatal("Delete: key still present")
	}
}

func TestRedisBackendThroughKV(t *testing.T) {
	kv := storage.NewKV(newRedisBackend(t))
	ctx := context.Background()

	res, err := kv.Set(ctx, "rec", map[string]any{"nonce": "n-1"})
	if err != nil {
		t.Fatalf("Set: %v", err)
	}
	m, ok := res.(map[string]any)
	if !ok || m["nonce"] != "n-1" {
		t.Fatalf("Set: expected verified map, got %#v", res)
	}
	if _, err := kv.Set(ctx, "rec", nil); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if v, _ := kv.Get(ctx, "rec"); v != nil {
		t.Fatalf("Get after clear: expected nil, got %#v", v)
	}
}
