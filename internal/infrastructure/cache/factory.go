package cache

import (
	"fmt"

	"github.com/finbooks/backend/internal/domain/shared"
	"github.com/finbooks/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// NewIdempotencyStore creates an idempotency store from configuration.
// The redis backend fails hard when the server is unreachable: silently
// falling back to a per-instance memory store would let retried money
// operations through on another instance.
func NewIdempotencyStore(cfg *config.IdempotencyConfig, redisCfg *config.RedisConfig, logger *zap.Logger) (shared.IdempotencyStore, error) {
	switch cfg.Backend {
	case "redis":
		store, err := NewRedisIdempotencyStore(redisCfg, cfg.KeyPrefix)
		if err != nil {
			return nil, fmt.Errorf("failed to create redis idempotency store: %w", err)
		}
		logger.Info("idempotency store ready",
			zap.String("backend", "redis"),
			zap.String("addr", redisCfg.Addr()),
		)
		return store, nil
	case "memory", "":
		logger.Info("idempotency store ready", zap.String("backend", "memory"))
		return NewInMemoryIdempotencyStore(), nil
	default:
		return nil, fmt.Errorf("unknown idempotency backend %q", cfg.Backend)
	}
}
