package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// Each dialect has its own directory of migrations under files/.
const (
	SQLite   = "sqlite"
	Postgres = "postgres"
)

//go:embed files/sqlite/*.sql files/postgres/*.sql
var migrationFiles embed.FS

// CheckDBMigrationStatus verifies that the database schema is up-to-date.
func CheckDBMigrationStatus(db *sql.DB, dialect string) error {
	m, err := newMigrate(db, dialect)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	// m is not closed: that would close db, which the caller owns.

	version, dirty, err := m.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return fmt.Errorf("database has no schema version (needs migration)")
		}
		return fmt.Errorf("failed to get database version: %w", err)
	}
	if dirty {
		return fmt.Errorf("database is in dirty state at version %d (migration failed previously)", version)
	}

	src, err := newSource(dialect)
	if err != nil {
		return err
	}
	defer src.Close()

	latest, err := getLatestVersion(src)
	if err != nil {
		return fmt.Errorf("failed to determine latest version: %w", err)
	}

	switch {
	case version < latest:
		return fmt.Errorf("database is at version %d but latest is %d (%d migrations behind)",
			version, latest, latest-version)
	case version > latest:
		return fmt.Errorf("database version %d is ahead of binary version %d (binary needs update)",
			version, latest)
	}
	return nil
}

// MigrateUp runs all pending migrations. An up-to-date database is not an error.
func MigrateUp(db *sql.DB, dialect string) error {
	m, err := newMigrate(db, dialect)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

func newSource(dialect string) (source.Driver, error) {
	switch dialect {
	case SQLite, Postgres:
	default:
		return nil, fmt.Errorf("no migrations for dialect %q", dialect)
	}
	src, err := iofs.New(migrationFiles, "files/"+dialect)
	if err != nil {
		return nil, fmt.Errorf("failed to create source driver: %w", err)
	}
	return src, nil
}

func newMigrate(db *sql.DB, dialect string) (*migrate.Migrate, error) {
	src, err := newSource(dialect)
	if err != nil {
		return nil, err
	}

	var (
		driver database.Driver
		name   string
	)
	switch dialect {
	case SQLite:
		driver, err = sqlite3.WithInstance(db, &sqlite3.Config{})
		name = "sqlite3"
	case Postgres:
		driver, err = pgxmigrate.WithInstance(db, &pgxmigrate.Config{})
		name = "pgx5"
	}
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, name, driver)
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return m, nil
}

// getLatestVersion returns the highest version number available in the source.
func getLatestVersion(src source.Driver) (uint, error) {
	version, err := src.First()
	if err != nil {
		return 0, err
	}
	for {
		next, err := src.Next(version)
		if err != nil {
			// Next fails once there are no more migrations.
			return version, nil
		}
		version = next
	}
}
