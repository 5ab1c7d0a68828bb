package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrDirtySchema means an earlier migration of the model registry stopped
// halfway and the schema needs manual repair.
var ErrDirtySchema = errors.New("model registry schema is dirty")

// RunMigrations brings the model registry at dbPath up to the latest
// embedded schema and returns the resulting schema version. It uses its own
// connection because closing the migrator closes the database.
func RunMigrations(dbPath string) (uint, error) {
	migrateDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return 0, fmt.Errorf("model registry %s: open: %w", dbPath, err)
	}
	defer migrateDB.Close()

	driver, err := sqlite.WithInstance(migrateDB, &sqlite.Config{})
	if err != nil {
		return 0, fmt.Errorf("model registry %s: sqlite driver: %w", dbPath, err)
	}

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return 0, fmt.Errorf("model registry: embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return 0, fmt.Errorf("model registry %s: %w", dbPath, err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("model registry %s: apply migrations: %w", dbPath, err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return 0, fmt.Errorf("model registry %s: read schema version: %w", dbPath, err)
	}
	if dirty {
		return version, fmt.Errorf("model registry %s: version %d: %w", dbPath, version, ErrDirtySchema)
	}
	return version, nil
}
