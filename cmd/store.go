package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/anicoll/sensorhub/internal/pkg/config"
	"github.com/anicoll/sensorhub/internal/pkg/database"
	"github.com/anicoll/sensorhub/internal/pkg/database/memory"
	"github.com/anicoll/sensorhub/internal/pkg/database/migration"
)

var (
	_ Store = (*database.Database)(nil)
	_ Store = (*memory.Store)(nil)
)

// openStore returns the configured backend. PostgreSQL is migrated to the
// latest schema before the pool is opened.
func openStore(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	logger := zap.L()
	switch cfg.Backend {
	case config.BackendMemory:
		logger.Warn("using in-memory storage, data is lost on exit")
		return memory.New(), nil
	case config.BackendPostgres:
		if err := migration.Migrate(cfg.DatabaseURL, cfg.MigrationsFolder); err != nil {
			return nil, err
		}
		db, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		logger.Info("connected to postgres")
		return db, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
