package storage_test

import (
	"context"
	"os"
	"testing"

	natsserver "github.com/nats-io/nats-server/v2/test"
	nats "github.com/nats-io/nats.go"

	"github.com/mirkobrombin/go-softlock/v1/storage"
)

func newNATSBackend(t *testing.T) *storage.NATSBackend {
	t.Helper()
	addr := os.Getenv("SOFTLOCK_TEST_NATS_ADDR")
	var conn *nats.Conn
	var err error
	if addr != "" {
		t.Logf("using real NATS at %s", addr)
		conn, err = nats.Connect(addr)
		if err != nil {
			t.Fatalf("connect: %v", err)
		}
	} else {
		opts := natsserver.DefaultTestOptions
		opts.Port = -1
		opts.JetStream = true
		opts.StoreDir = t.TempDir()
		s := natsserver.RunServer(&opts)
		t.Cleanup(s.Shutdown)
		conn, err = nats.Connect(s.ClientURL())
		if err != nil {
			t.Fatalf("connect: %v", err)
		}
	}
	t.Cleanup(conn.Close)

	b, err := storage.NewNATSBackend(conn, "SOFTLOCK_TEST")
	if err != nil {
		t.Fatalf("new nats backend: %v", err)
	}
	return b
}

func TestNATSBackendGetSetDelete(t *testing.T) {
	b := newNATSBackend(t)
	ctx := context.Background()

	if _, ok, err := b.Get(ctx, "a/b/0"); err != nil || ok {
		t.Fatalf("Get: expected absent, got ok=%v err=%v", ok, err)
	}
	if err := b.Set(ctx, "a/b/0", "v"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if v, ok, err := b.Get(ctx, "a/b/0"); err != nil || !ok || v != "v" {
		t.Fatalf("Get: expected v, got %q ok=%v err=%v", v, ok, err)
	}
	if err := b.Delete(ctx, "a/b/0"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := b.Get(ctx, "a/b/0"); ok {
		t.Fatal("Delete: key still present")
	}
}

func TestNATSBackendThroughKV(t *testing.T) {
	kv := storage.NewKV(newNATSBackend(t))
	ctx := context.Background()

	res, err := kv.Set(ctx, "locks/master-id/1", map[string]any{"value": nil, "nonce": "n"})
	if err != nil {
		t.Fatalf("Set: %v", err)
	}
	m, ok := res.(map[string]any)
	if !ok || m["nonce"] != "n" {
		t.Fatalf("Set: expected verified map, got %#v", res)
	}
}
