package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/domain"
)

func TestKVStore_PostgresRoundTrip(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	kv := NewKVStore(store)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, ok, err := kv.GetItem(ctx, "tishyaa:cart_items"); err != nil || ok {
		t.Fatalf("expected absent key, got ok=%v err=%v", ok, err)
	}

	if err := kv.SetItem(ctx, "tishyaa:cart_items", "[]"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := kv.SetItem(ctx, "tishyaa:cart_items", `[{"id":"p1"}]`); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	value, ok, err := kv.GetItem(ctx, "tishyaa:cart_items")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if value != `[{"id":"p1"}]` {
		t.Fatalf("unexpected value %q", value)
	}

	if err := kv.RemoveItem(ctx, "tishyaa:cart_items"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, ok, _ := kv.GetItem(ctx, "tishyaa:cart_items"); ok {
		t.Fatal("key must be removed")
	}
	if err := kv.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestKVStore_EmptyKey(t *testing.T) {
	kv := NewKVStore(&Store{})
	if err := kv.SetItem(context.Background(), "", "x"); !errors.Is(err, domain.ErrKeyRequired) {
		t.Fatalf("expected ErrKeyRequired, got %v", err)
	}
}
