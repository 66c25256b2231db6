package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
)

const pgDriverName = "postgres"

//go:embed sql/*.sql
var embedded embed.FS

// Migrate applies all pending up migrations. An empty folderPath uses the
// migrations compiled into the binary.
func Migrate(dsn, folderPath string) error {
	db, err := sql.Open(pgDriverName, dsn)
	if err != nil {
		return err
	}
	defer db.Close()
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return err
	}

	var m *migrate.Migrate
	if folderPath != "" {
		m, err = migrate.NewWithDatabaseInstance("file://"+folderPath, pgDriverName, driver)
	} else {
		m, err = embeddedMigrate(driver)
	}
	if err != nil {
		return fmt.Errorf("migration: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration: %w", err)
	}
	return nil
}

func embeddedMigrate(driver database.Driver) (*migrate.Migrate, error) {
	src, err := iofs.New(embedded, "sql")
	if err != nil {
		return nil, err
	}
	return migrate.NewWithInstance("iofs", src, pgDriverName, driver)
}
