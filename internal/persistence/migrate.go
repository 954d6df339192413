package persistence

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations
var migrationsFS embed.FS

// runMigrationsFrom applies every pending migration to db, grounded on
// codeready-toolchain-tarsy's runMigrations (pkg/database/client.go): embed
// the SQL files, wrap the open *sql.DB as a migrate database instance, and
// apply via an iofs source. Here the sqlite3 golang-migrate dialect operates
// against the pure-Go modernc.org/sqlite driver connection (registered under
// driver name "sqlite"), rather than mattn/go-sqlite3's cgo binding.
//
// overridePath lets AGENTIC_MIGRATIONS_PATH point at an on-disk migrations
// directory instead of the embedded one, for tests that need to exercise a
// modified migration set without rebuilding the binary.
func runMigrationsFrom(db *sql.DB, dbName, overridePath string) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("persistence: create migrate driver: %w", err)
	}

	sourceDriver, sourceErr := migrationSource(overridePath)
	if sourceErr != nil {
		return sourceErr
	}
	defer sourceDriver.Close()

	m, err := migrate.NewWithInstance("iofs", sourceDriver, dbName, driver)
	if err != nil {
		return fmt.Errorf("persistence: create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("persistence: apply migrations: %w", err)
	}
	return nil
}

func migrationSource(overridePath string) (source.Driver, error) {
	if overridePath == "" {
		d, err := iofs.New(migrationsFS, "migrations")
		if err != nil {
			return nil, fmt.Errorf("persistence: create migration source: %w", err)
		}
		return d, nil
	}
	d, err := iofs.New(os.DirFS(overridePath), ".")
	if err != nil {
		return nil, fmt.Errorf("persistence: create migration source from %s: %w", overridePath, err)
	}
	return d, nil
}
