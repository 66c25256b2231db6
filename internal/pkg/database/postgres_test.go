package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/anicoll/sensorhub/internal/pkg/database/migration"
	"github.com/anicoll/sensorhub/internal/pkg/database/storetest"
)

func startPostgres(t *testing.T) *Database {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres integration test skipped in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("sensors"),
		postgres.WithUsername("sensors"),
		postgres.WithPassword("sensors"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, migration.Migrate(dsn, ""))

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	db, err := Connect(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestDatabase(t *testing.T) {
	original := zap.L()
	zap.ReplaceGlobals(zaptest.NewLogger(t))
	t.Cleanup(func() { zap.ReplaceGlobals(original) })

	db := startPostgres(t)

	storetest.Run(t, func(t *testing.T) storetest.Store {
		_, err := db.pool.Exec(context.Background(), `TRUNCATE users, sensors, readings RESTART IDENTITY CASCADE`)
		require.NoError(t, err)
		return db
	})
}

func TestMigrate_Idempotent(t *testing.T) {
	db := startPostgres(t)
	require.NoError(t, migration.Migrate(db.pool.Config().ConnString(), ""))
}
