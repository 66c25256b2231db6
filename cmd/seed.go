package cmd

import (
	"context"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/anicoll/sensorhub/internal/pkg/auth"
	"github.com/anicoll/sensorhub/internal/pkg/config"
	"github.com/anicoll/sensorhub/internal/pkg/seed"
)

// SeedCommand imports a long-format readings CSV into the configured store.
func SeedCommand(ctx *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	opts := seed.Options{
		Username: ctx.String("username"),
		Password: ctx.String("password"),
		Email:    ctx.String("email"),
	}
	_, err = runSeed(ctx.Context, cfg, ctx.String("path"), opts)
	return err
}

func runSeed(ctx context.Context, cfg *config.Config, path string, opts seed.Options) (seed.Result, error) {
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return seed.Result{}, err
	}
	defer func() {
		_ = logger.Sync()
	}()
	restore := zap.ReplaceGlobals(logger)
	defer restore()

	store, err := openStore(ctx, cfg.Storage)
	if err != nil {
		return seed.Result{}, err
	}
	defer store.Close()

	return seed.NewImporter(store, auth.NewIdentity(store)).ImportFile(ctx, path, opts)
}
