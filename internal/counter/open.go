package counter

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/BarkinBalci/adclick-detector/internal/config"
)

// Open builds the store selected by cfg.Store.Backend.
func Open(cfg *config.Config, log *zap.Logger) (Store, error) {
	switch cfg.Store.Backend {
	case config.StoreBackendMemory:
		log.Warn("Using in-memory counter store, counts will not survive a restart")
		return NewMemoryStore(), nil

	case config.StoreBackendBadger:
		store, err := OpenBadgerStore(cfg.Badger.Path, cfg.Store.KeyPrefix)
		if err != nil {
			return nil, err
		}
		log.Info("Badger counter store opened", zap.String("path", cfg.Badger.Path))
		return store, nil

	case config.StoreBackendRedis:
		client, err := NewRedisClient(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		log.Info("Redis counter store connected",
			zap.String("address", cfg.Redis.Address),
			zap.Int("db", cfg.Redis.DB))
		return NewRedisStore(client, cfg.Store.KeyPrefix), nil

	default:
		return nil, fmt.Errorf("unsupported counter store backend: %s", cfg.Store.Backend)
	}
}
