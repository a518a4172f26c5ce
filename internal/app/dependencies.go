package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/domain"
	healthcheck "github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/health"
	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/storage/memory"
	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/storage/postgres"
	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/storage/redis"
)

const (
	storageInitTimeout = 15 * time.Second
	redisInitAttempts  = 5
)

// runtimeDependencies — хранилища, выбранные конфигурацией.
type runtimeDependencies struct {
	store          domain.KeyValueStore
	timeline       domain.TimelineRepository
	storageChecker healthcheck.Checker
	closeFn        func() error
}

// initRuntimeDependencies открывает хранилище по cfg.StorageDriver.
func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (runtimeDependencies, error) {
	if logger == nil {
		logger = log.New().WithField("component", "app")
	}

	driver := StorageDriver(strings.ToLower(strings.TrimSpace(string(cfg.StorageDriver))))
	if driver == "" {
		driver = StorageDriverMemory
	}

	switch driver {
	case StorageDriverMemory:
		store := memory.NewKVStore()
		logger.Info("используется in-memory хранилище")
		return runtimeDependencies{
			store:          store,
			timeline:       memory.NewTimelineRepository(),
			storageChecker: healthcheck.NewPingChecker("storage", store, 0),
		}, nil

	case StorageDriverRedis:
		if strings.TrimSpace(cfg.RedisAddr) == "" {
			return runtimeDependencies{}, errors.New("redis address is required for redis storage driver")
		}
		store := redis.NewKVStore(cfg.RedisAddr, logger.WithField("component", "redis-kv"))

		initCtx, cancel := context.WithTimeout(ctx, storageInitTimeout)
		defer cancel()
		if err := store.Initialize(initCtx, redisInitAttempts); err != nil {
			_ = store.Close()
			return runtimeDependencies{}, fmt.Errorf("connect redis: %w", err)
		}

		logger.WithField("redis_addr", cfg.RedisAddr).Info("используется redis хранилище")
		return runtimeDependencies{
			store:          store,
			timeline:       memory.NewTimelineRepository(),
			storageChecker: healthcheck.NewPingChecker("storage", store, 0),
			closeFn:        store.Close,
		}, nil

	case StorageDriverPostgres:
		if strings.TrimSpace(cfg.PostgresDSN) == "" {
			return runtimeDependencies{}, errors.New("postgres dsn is required for postgres storage driver")
		}

		initCtx, cancel := context.WithTimeout(ctx, storageInitTimeout)
		defer cancel()

		store, err := postgres.Open(initCtx, cfg.PostgresDSN)
		if err != nil {
			return runtimeDependencies{}, fmt.Errorf("open postgres: %w", err)
		}

		if cfg.PostgresAutoMigrate {
			if err := store.MigrateUp(initCtx, 0); err != nil {
				_ = store.Close()
				return runtimeDependencies{}, fmt.Errorf("migrate postgres: %w", err)
			}
		}

		kv := postgres.NewKVStore(store)
		logger.WithField("auto_migrate", cfg.PostgresAutoMigrate).Info("используется postgres хранилище")
		return runtimeDependencies{
			store:          kv,
			timeline:       postgres.NewTimelineRepository(store),
			storageChecker: healthcheck.NewPingChecker("storage", kv, 0),
			closeFn:        store.Close,
		}, nil

	default:
		return runtimeDependencies{}, fmt.Errorf("unsupported storage driver: %q", cfg.StorageDriver)
	}
}
