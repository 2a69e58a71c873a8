// Package app assembles the editing services from configuration. The server
// and the seed command share it so both talk to the same backends.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"casefile/internal/config"
	editingRepo "casefile/internal/domain/repositories/editing"
	editingSvc "casefile/internal/domain/services/editing"
	"casefile/internal/repository/memory"
	"casefile/internal/repository/postgres"
	postgresEditing "casefile/internal/repository/postgres/editing"
	serviceEditing "casefile/internal/service/editing"
	"casefile/internal/storage/blob"
)

// Restore window of the in-memory blob store, matching S3 Standard retrievals
const (
	memoryRestoreMin = 3 * time.Hour
	memoryRestoreMax = 5 * time.Hour
)

// Services are the editing services plus whatever must be closed on shutdown
type Services struct {
	Locks    editingSvc.LockService
	Versions editingSvc.VersionService
	Tiers    editingSvc.TierService

	closers []func()
}

// Close releases backend resources in reverse order of creation
func (s *Services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// Setup connects the configured store and blob backends and builds the
// editing services over one shared coordinator
func Setup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Services, error) {
	services := &Services{}
	coordinatorCfg := &serviceEditing.Config{
		LockTTL: cfg.LockTTL,
		Logger:  logger,
	}

	switch cfg.StoreBackend {
	case "postgres":
		pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		services.closers = append(services.closers, pool.Close)

		if err := postgres.MigratePool(ctx, pool); err != nil {
			services.Close()
			return nil, err
		}
		logger.Info("database connected and migrated")

		repoConfig := &postgres.RepositoryConfig{
			Pool:   pool,
			Tables: postgres.NewTableNames(),
			Logger: logger,
		}
		coordinatorCfg.Documents = postgresEditing.NewDocumentRepository(repoConfig)
		coordinatorCfg.Locks = postgresEditing.NewLockRepository(repoConfig)
		coordinatorCfg.Versions = postgresEditing.NewVersionRepository(repoConfig)
		coordinatorCfg.TxManager = postgres.NewTransactionManager(pool, logger)

	case "memory":
		store := memory.NewStore()
		coordinatorCfg.Documents = store.Documents()
		coordinatorCfg.Locks = store.Locks()
		coordinatorCfg.Versions = store.Versions()
		coordinatorCfg.TxManager = store.TxManager()
		logger.Warn("using in-memory store; documents are lost on restart")

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}

	content, err := contentStore(ctx, cfg, logger)
	if err != nil {
		services.Close()
		return nil, err
	}
	coordinatorCfg.Content = content

	coordinator := serviceEditing.NewCoordinator(coordinatorCfg)
	services.Locks = serviceEditing.NewLockService(coordinator)
	services.Versions = serviceEditing.NewVersionService(coordinator)
	services.Tiers = serviceEditing.NewTierService(coordinator)
	return services, nil
}

func contentStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (editingRepo.ContentStore, error) {
	switch cfg.BlobBackend {
	case "s3":
		store, err := blob.NewS3Store(ctx, blob.S3Config{
			Bucket:      cfg.S3Bucket,
			Region:      cfg.S3Region,
			Endpoint:    cfg.S3Endpoint,
			AccessKey:   cfg.S3AccessKey,
			SecretKey:   cfg.S3SecretKey,
			RestoreDays: cfg.S3RestoreDays,
			RestoreTier: cfg.S3RestoreTier,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("create s3 store: %w", err)
		}
		logger.Info("version content stored in s3", "bucket", cfg.S3Bucket, "restore_tier", cfg.S3RestoreTier)
		return store, nil
	case "memory":
		if cfg.StoreBackend == "postgres" {
			logger.Warn("version content kept in memory while metadata is in postgres; content is lost on restart")
		}
		return blob.NewMemoryStore(memoryRestoreMin, memoryRestoreMax), nil
	default:
		return nil, fmt.Errorf("unknown blob backend %q", cfg.BlobBackend)
	}
}
