package migrations

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrateUp_FreshDatabase(t *testing.T) {
	db := openTestDB(t)

	if err := MigrateUp(db, SQLite); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	for _, table := range []string{"vaults", "index_records", "index_runs", "schema_migrations"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s was not created: %v", table, err)
		}
	}
}

func TestCheckDBMigrationStatus_FreshDatabase(t *testing.T) {
	db := openTestDB(t)

	err := CheckDBMigrationStatus(db, SQLite)
	if err == nil {
		t.Fatal("CheckDBMigrationStatus() expected error for fresh database, got nil")
	}
	if err.Error() != "database has no schema version (needs migration)" {
		t.Errorf("CheckDBMigrationStatus() error = %q, want error about needing migration", err.Error())
	}
}

func TestMigrateUp_Idempotent(t *testing.T) {
	db := openTestDB(t)

	if err := MigrateUp(db, SQLite); err != nil {
		t.Fatalf("first MigrateUp() failed: %v", err)
	}
	if err := MigrateUp(db, SQLite); err != nil {
		t.Errorf("second MigrateUp() failed: %v", err)
	}
	if err := CheckDBMigrationStatus(db, SQLite); err != nil {
		t.Errorf("CheckDBMigrationStatus() after migration returned error: %v", err)
	}
}

func TestLatestVersionPerDialect(t *testing.T) {
	for _, dialect := range []string{SQLite, Postgres} {
		t.Run(dialect, func(t *testing.T) {
			src, err := newSource(dialect)
			if err != nil {
				t.Fatalf("newSource() error = %v", err)
			}
			defer src.Close()

			got, err := getLatestVersion(src)
			if err != nil {
				t.Fatalf("getLatestVersion() error = %v", err)
			}
			if got != 1 {
				t.Errorf("latest version = %d, want 1", got)
			}
		})
	}
}

func TestUnknownDialect(t *testing.T) {
	if err := MigrateUp(openTestDB(t), "mysql"); err == nil {
		t.Fatal("MigrateUp() expected error for unknown dialect")
	}
}
