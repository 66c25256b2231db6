package cmd

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/anicoll/sensorhub/internal/pkg/auth"
	"github.com/anicoll/sensorhub/internal/pkg/config"
	"github.com/anicoll/sensorhub/internal/pkg/server"
)

const shutdownTimeout = 10 * time.Second

// ServeCommand starts the HTTP API with configuration from the environment.
func ServeCommand(ctx *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if ctx.IsSet("http-addr") {
		cfg.HTTPAddr = ctx.String("http-addr")
	}
	return run(ctx.Context, cfg)
}

func run(ctx context.Context, cfg *config.Config) error {
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync() // flushes buffer, if any.
	}()
	restore := zap.ReplaceGlobals(logger)
	defer restore()

	ln, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		return err
	}
	return serve(ctx, cfg, ln)
}

// serve runs the API on ln until ctx is cancelled, then drains in-flight
// requests.
func serve(ctx context.Context, cfg *config.Config, ln net.Listener) error {
	logger := zap.L()
	store, err := openStore(ctx, cfg.Storage)
	if err != nil {
		_ = ln.Close()
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("error closing store", zap.Error(err))
		}
	}()

	api, err := server.New(store, auth.NewIdentity(store), auth.NewTokens(cfg.JWT))
	if err != nil {
		_ = ln.Close()
		return err
	}
	srv := &http.Server{
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		logger.Info("http server listening", zap.String("addr", ln.Addr().String()), zap.String("env", cfg.AppEnv))
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return eg.Wait()
}

func newLogger(level string) (*zap.Logger, error) {
	logCfg := zap.NewProductionConfig()
	var err error
	logCfg.Level, err = zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	logCfg.OutputPaths = []string{"stdout"}
	logCfg.ErrorOutputPaths = []string{"stdout"}
	logCfg.Sampling = nil
	return logCfg.Build(zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel))
}
