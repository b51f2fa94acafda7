package storage_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/mirkobrombin/go-softlock/v1/storage"
)

func newFileBackend(t *testing.T) *storage.FileBackend {
	t.Helper()
	b, err := storage.NewFileBackend(filepath.Join(t.TempDir(), "kv.db"))
	if err != nil {
		t.Fatalf("open file backend: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestFileBackendGetSetDelete(t *testing.T) {
	b := newFileBackend(t)
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

func TestFileBackendPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.db")
	ctx := context.Background()

	b, err := storage.NewFileBackend(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := b.Set(ctx, "k", "survives"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	b, err = storage.NewFileBackend(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer b.Close()
	if v, ok, err := b.Get(ctx, "k"); err != nil || !ok || v != "survives" {
		t.Fatalf("Get after reopen: expected survives, got %q ok=%v err=%v", v, ok, err)
	}
}

func TestFileBackendThroughKV(t *testing.T) {
	kv := storage.NewKV(newFileBackend(t))
	ctx := context.Background()

	res, err := kv.Set(ctx, "rec", map[string]any{"sid": "s-1"})
	if err != nil {
		t.Fatalf("Set: %v", err)
	}
	m, ok := res.(map[string]any)
	if !ok || m["sid"] != "s-1" {
		t.Fatalf("Set: expected verified map, got %#v", res)
	}
}
