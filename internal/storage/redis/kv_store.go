package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/domain"
	log "github.com/sirupsen/logrus"
)

const (
	defaultInitAttempts = 10
	maxBackoff          = 30 * time.Second
)

// KVStore — реализация KeyValueStore поверх Redis. Значения хранятся строками без TTL.
type KVStore struct {
	client *goredis.Client
	logger *log.Entry
}

// NewKVStore принимает адрес вида "host:port" или URL "redis://..." и создаёт клиента.
// Соединение не проверяется; для этого есть Initialize.
func NewKVStore(addr string, logger *log.Entry) *KVStore {
	if logger == nil {
		logger = log.New().WithField("component", "redis-kv")
	}

	opts, err := goredis.ParseURL(addr)
	if err != nil {
		opts = &goredis.Options{
			Addr:         addr,
			MinIdleConns: 1,
			MaxRetries:   3,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			PoolSize:     10,
			PoolTimeout:  4 * time.Second,
			IdleTimeout:  180 * time.Second,
		}
	}

	return &KVStore{
		client: goredis.NewClient(opts),
		logger: logger,
	}
}

// NewKVStoreWithClient оборачивает готового клиента.
func NewKVStoreWithClient(client *goredis.Client, logger *log.Entry) *KVStore {
	if logger == nil {
		logger = log.New().WithField("component", "redis-kv")
	}
	return &KVStore{client: client, logger: logger}
}

// Initialize проверяет соединение с экспоненциальной задержкой между попытками.
func (s *KVStore) Initialize(ctx context.Context, attempts int) error {
	if attempts <= 0 {
		attempts = defaultInitAttempts
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if lastErr = s.Ping(ctx); lastErr == nil {
			s.logger.WithField("attempt", i+1).Info("redis connection established")
			return nil
		}

		backoff := time.Duration(100*(1<<uint(i))) * time.Millisecond
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
		s.logger.WithError(lastErr).WithFields(log.Fields{
			"attempt": i + 1,
			"backoff": backoff.String(),
		}).Warn("redis ping failed, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}

	return fmt.Errorf("connect to redis after %d attempts: %w", attempts, lastErr)
}

// GetItem возвращает значение по ключу; отсутствующий ключ не считается ошибкой.
func (s *KVStore) GetItem(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, domain.ErrKeyRequired
	}

	value, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return value, true, nil
}

// SetItem сохраняет значение без срока жизни.
func (s *KVStore) SetItem(ctx context.Context, key, value string) error {
	if key == "" {
		return domain.ErrKeyRequired
	}
	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// RemoveItem удаляет ключ.
func (s *KVStore) RemoveItem(ctx context.Context, key string) error {
	if key == "" {
		return domain.ErrKeyRequired
	}
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// Ping проверяет доступность Redis.
func (s *KVStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close закрывает клиента.
func (s *KVStore) Close() error {
	return s.client.Close()
}

var (
	_ domain.KeyValueStore = (*KVStore)(nil)
	_ domain.Pinger        = (*KVStore)(nil)
)
