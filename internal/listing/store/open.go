package store

import (
	"context"
	"fmt"

	"github.com/tair/farm-marketplace/internal/config"
	"github.com/tair/farm-marketplace/internal/listing/domain"
	"github.com/tair/farm-marketplace/internal/listing/store/memory"
	"github.com/tair/farm-marketplace/internal/listing/store/postgres"
	redisstore "github.com/tair/farm-marketplace/internal/listing/store/redis"
	"github.com/tair/farm-marketplace/pkg/database"
	"github.com/tair/farm-marketplace/pkg/logger"
)

// Open connects the configured backend and wraps it with tracing. The returned
// cleanup releases the backend connection.
func Open(ctx context.Context, cfg *config.Config) (domain.Store, func(), error) {
	var (
		backend domain.Store
		cleanup = func() {}
	)

	switch cfg.StoreBackend {
	case config.BackendMemory:
		backend = memory.New()

	case config.BackendRedis:
		client, err := database.NewRedisClient(ctx, cfg.RedisConfig())
		if err != nil {
			return nil, nil, err
		}
		backend = redisstore.New(client, cfg.Redis.Prefix)
		cleanup = func() {
			if err := client.Close(); err != nil {
				logger.Logger.Error().Err(err).Msg("Failed to close Redis client")
			}
		}

	case config.BackendPostgres:
		db, err := database.NewGormConnection(cfg.DatabaseConfig())
		if err != nil {
			return nil, nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to get database instance: %w", err)
		}
		pg := postgres.New(db, cfg.PollInterval)
		if err := pg.AutoMigrate(); err != nil {
			_ = sqlDB.Close()
			return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		backend = pg
		cleanup = func() {
			if err := sqlDB.Close(); err != nil {
				logger.Logger.Error().Err(err).Msg("Failed to close database")
			}
		}

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}

	logger.Logger.Info().Str("backend", cfg.StoreBackend).Msg("Listing store opened")
	return WithTracing(backend, cfg.StoreBackend), cleanup, nil
}
