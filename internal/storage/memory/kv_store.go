package memory

import (
	"context"
	"sync"

	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/domain"
)

// KVStore — in-memory реализация KeyValueStore.
type KVStore struct {
	mu    sync.RWMutex
	items map[string]string
}

// NewKVStore создаёт пустое хранилище.
func NewKVStore() *KVStore {
	return &KVStore{items: make(map[string]string)}
}

// GetItem возвращает значение по ключу.
func (s *KVStore) GetItem(_ context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, domain.ErrKeyRequired
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.items[key]
	return value, ok, nil
}

// SetItem сохраняет значение, перезаписывая предыдущее.
func (s *KVStore) SetItem(_ context.Context, key, value string) error {
	if key == "" {
		return domain.ErrKeyRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[key] = value
	return nil
}

// RemoveItem удаляет ключ. Отсутствующий ключ не считается ошибкой.
func (s *KVStore) RemoveItem(_ context.Context, key string) error {
	if key == "" {
		return domain.ErrKeyRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.items, key)
	return nil
}

// Ping всегда успешен.
func (s *KVStore) Ping(context.Context) error {
	return nil
}

// Len возвращает количество ключей.
func (s *KVStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

var (
	_ domain.KeyValueStore = (*KVStore)(nil)
	_ domain.Pinger        = (*KVStore)(nil)
)
