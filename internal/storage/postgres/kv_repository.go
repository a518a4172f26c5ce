package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/domain"
)

// KVStore — реализация KeyValueStore поверх таблицы kv_items.
type KVStore struct {
	store *Store
}

// NewKVStore создаёт PostgreSQL-реализацию KeyValueStore.
func NewKVStore(store *Store) *KVStore {
	return &KVStore{store: store}
}

// GetItem возвращает значение по ключу.
func (r *KVStore) GetItem(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, domain.ErrKeyRequired
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var value string
	err := r.store.DB().QueryRowContext(ctx, `SELECT value FROM kv_items WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get kv item %s: %w", key, err)
	}
	return value, true, nil
}

// SetItem сохраняет значение (upsert).
func (r *KVStore) SetItem(ctx context.Context, key, value string) error {
	if key == "" {
		return domain.ErrKeyRequired
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if _, err := r.store.DB().ExecContext(ctx, `
		INSERT INTO kv_items (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`, key, value); err != nil {
		return fmt.Errorf("set kv item %s: %w", key, err)
	}
	return nil
}

// RemoveItem удаляет ключ.
func (r *KVStore) RemoveItem(ctx context.Context, key string) error {
	if key == "" {
		return domain.ErrKeyRequired
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if _, err := r.store.DB().ExecContext(ctx, `DELETE FROM kv_items WHERE key = $1`, key); err != nil {
		return fmt.Errorf("remove kv item %s: %w", key, err)
	}
	return nil
}

// Ping проверяет доступность базы.
func (r *KVStore) Ping(ctx context.Context) error {
	return r.store.Ping(ctx)
}

var (
	_ domain.KeyValueStore = (*KVStore)(nil)
	_ domain.Pinger        = (*KVStore)(nil)
)
