package redis

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/domain"
)

func openTestStore(t *testing.T) *KVStore {
	t.Helper()

	addr := os.Getenv("STOREFRONT_REDIS_TEST_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	store := NewKVStore(addr, nil)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := store.Ping(ctx); err != nil {
		_ = store.Close()
		t.Skipf("redis is not reachable at %s: %v", addr, err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestKVStore_Integration(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	key := "test:" + uuid.NewString() + ":cart_items"

	_, ok, err := store.GetItem(ctx, key)
	if err != nil || ok {
		t.Fatalf("expected absent key, got ok=%v err=%v", ok, err)
	}

	if err := store.SetItem(ctx, key, `[{"id":"p1","quantity":2}]`); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	value, ok, err := store.GetItem(ctx, key)
	if err != nil || !ok || value != `[{"id":"p1","quantity":2}]` {
		t.Fatalf("unexpected get result: %q ok=%v err=%v", value, ok, err)
	}

	if err := store.RemoveItem(ctx, key); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if _, ok, _ := store.GetItem(ctx, key); ok {
		t.Fatal("key must be removed")
	}
}

func TestKVStore_EmptyKey(t *testing.T) {
	store := NewKVStore("localhost:0", nil)
	defer store.Close()

	if _, _, err := store.GetItem(context.Background(), ""); !errors.Is(err, domain.ErrKeyRequired) {
		t.Fatalf("expected ErrKeyRequired, got %v", err)
	}
}

func TestKVStore_InitializeRespectsContext(t *testing.T) {
	store := NewKVStore("127.0.0.1:1", nil)
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := store.Initialize(ctx, 5); err == nil {
		t.Fatal("expected initialize to fail against closed port")
	}
}
