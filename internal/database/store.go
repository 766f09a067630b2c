package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // Postgres driver
	_ "github.com/mattn/go-sqlite3"    // SQLite driver

	"vaultindex/internal/database/migrations"
	"vaultindex/internal/index"
)

// ErrVaultNotFound is returned when a vault lookup by name or ID finds nothing
// and the caller needs a vault.
var ErrVaultNotFound = errors.New("vault not found")

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLStore implements index.Store and index.VaultSource on database/sql.
type SQLStore struct {
	*queries
	db   *sql.DB
	path string
}

// OpenSQLite opens a SQLite database. path can be a file path or ":memory:".
//
// The pool is limited to one connection: SQLite has a single writer, and
// every connection to ":memory:" would otherwise be a separate database.
func OpenSQLite(path string) (*SQLStore, error) {
	db, err := sql.Open(sqliteDialect.driverName, path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	return newSQLStore(db, sqliteDialect, path), nil
}

// OpenPostgres opens a Postgres database through pgx.
func OpenPostgres(ctx context.Context, dsn string, maxOpenConns int) (*SQLStore, error) {
	db, err := sql.Open(postgresDialect.driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// The migration driver pins a connection of its own.
	if maxOpenConns < 2 {
		maxOpenConns = 2
	}
	db.SetMaxOpenConns(maxOpenConns)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	return newSQLStore(db, postgresDialect, ""), nil
}

// NewSQLStoreFromDB wraps an existing connection, e.g. one from sqlmock.
// dialectName is "sqlite" or "postgres".
func NewSQLStoreFromDB(db *sql.DB, dialectName string) (*SQLStore, error) {
	switch dialectName {
	case migrations.SQLite:
		return newSQLStore(db, sqliteDialect, ""), nil
	case migrations.Postgres:
		return newSQLStore(db, postgresDialect, ""), nil
	default:
		return nil, fmt.Errorf("unknown dialect: %s", dialectName)
	}
}

func newSQLStore(db *sql.DB, d dialect, path string) *SQLStore {
	return &SQLStore{
		queries: &queries{db: db, d: d},
		db:      db,
		path:    path,
	}
}

// InTx runs fn in a transaction. It commits when fn returns nil and rolls
// back on error or panic.
func (s *SQLStore) InTx(ctx context.Context, fn func(tx index.RecordStore) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&queries{db: tx, d: s.d}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rolling back: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Dialect returns "sqlite" or "postgres".
func (s *SQLStore) Dialect() string {
	return s.d.name
}

// Path returns the database file path; empty for Postgres and wrapped connections.
func (s *SQLStore) Path() string {
	return s.path
}

// MigrateUp applies pending schema migrations.
func (s *SQLStore) MigrateUp() error {
	return migrations.MigrateUp(s.db, s.d.name)
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLStore) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db, s.d.name)
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

var (
	_ index.Store       = (*SQLStore)(nil)
	_ index.VaultSource = (*SQLStore)(nil)
)
