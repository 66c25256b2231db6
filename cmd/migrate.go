package cmd

import (
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/anicoll/sensorhub/internal/pkg/database/migration"
)

// MigrateCommand applies pending schema migrations and exits.
func MigrateCommand(ctx *cli.Context) error {
	logger, err := newLogger(ctx.String("log-level"))
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	if err := migration.Migrate(ctx.String("database-url"), ctx.String("migrations-folder")); err != nil {
		logger.Error("migration failed", zap.Error(err))
		return err
	}
	logger.Info("database schema is up to date")
	return nil
}
