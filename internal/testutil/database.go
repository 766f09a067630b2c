package testutil

import (
	"context"
	"testing"

	"vaultindex/internal/database"
	"vaultindex/internal/model"
)

// NewTestStore creates an in-memory SQLite store with migrations applied.
// The store is closed when the test completes.
func NewTestStore(t *testing.T) *database.SQLStore {
	t.Helper()

	store, err := database.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})

	if err := store.MigrateUp(); err != nil {
		t.Fatalf("failed to apply migrations: %v", err)
	}
	return store
}

// CreateLocalVault stores a local_folder vault rooted at root.
func CreateLocalVault(t *testing.T, store *database.SQLStore, id, name, root string) *model.Vault {
	t.Helper()

	v := NewLocalVault(id, name, root)
	if err := store.CreateVault(context.Background(), v); err != nil {
		t.Fatalf("creating vault: %v", err)
	}
	return v
}

// AllRecords returns every record of a vault by walking the hierarchy from
// the root level down, page by page.
func AllRecords(t *testing.T, store *database.SQLStore, vaultID string) []*model.Record {
	t.Helper()

	var out []*model.Record
	queue := []*string{nil}
	for len(queue) > 0 {
		parent := queue[0]
		queue = queue[1:]

		after := ""
		for {
			page, err := store.List(context.Background(), model.ListQuery{VaultID: vaultID, ParentID: parent, AfterID: after, Limit: 100})
			if err != nil {
				t.Fatalf("listing records: %v", err)
			}
			if len(page) == 0 {
				break
			}
			for _, rec := range page {
				out = append(out, rec)
				if rec.Kind == model.KindFolder {
					queue = append(queue, &rec.ID)
				}
			}
			after = page[len(page)-1].ID
		}
	}
	return out
}

// RecordPaths maps PathID to record for the given records.
func RecordPaths(records []*model.Record) map[string]*model.Record {
	m := make(map[string]*model.Record, len(records))
	for _, rec := range records {
		m[rec.PathID] = rec
	}
	return m
}
