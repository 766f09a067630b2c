package index_test

import (
	"path/filepath"
	"testing"

	"vaultindex/internal/database"
	"vaultindex/internal/index"
	"vaultindex/internal/model"
	"vaultindex/internal/testutil"
)

const root = "/vaults/docs"

type harness struct {
	svc   *index.Service
	store *database.SQLStore
	fsys  *testutil.MockFilesystemManager
	vault *model.Vault
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWithIgnore(t, nil)
}

func newHarnessWithIgnore(t *testing.T, ignore index.IgnoreSource) *harness {
	t.Helper()

	store := testutil.NewTestStore(t)
	fsys := testutil.NewMockFilesystemManager()
	fsys.AddDirectory(root)

	return &harness{
		svc:   index.NewService(store, fsys, ignore, index.NewNopLogger(), nil, testutil.FixedClock(), testutil.NewStubIDGenerator()),
		store: store,
		fsys:  fsys,
		vault: testutil.CreateLocalVault(t, store, "vault-1", "docs", root),
	}
}

func (h *harness) records(t *testing.T) map[string]*model.Record {
	t.Helper()
	return testutil.RecordPaths(testutil.AllRecords(t, h.store, h.vault.ID))
}

// p joins path elements under the vault root.
func p(elem ...string) string {
	return filepath.Join(append([]string{root}, elem...)...)
}

// assertHierarchy checks that every record's parent is the folder record of
// its parent directory, and that root-level records have no parent.
func assertHierarchy(t *testing.T, records map[string]*model.Record) {
	t.Helper()

	byID := make(map[string]*model.Record, len(records))
	for _, rec := range records {
		byID[rec.ID] = rec
	}
	for path, rec := range records {
		dir := filepath.Dir(path)
		if dir == root {
			if rec.ParentID != nil {
				t.Errorf("%s: root-level record has parent %s", path, *rec.ParentID)
			}
			continue
		}
		if rec.ParentID == nil {
			t.Errorf("%s: missing parent", path)
			continue
		}
		parent, ok := byID[*rec.ParentID]
		if !ok {
			t.Errorf("%s: parent %s not found", path, *rec.ParentID)
			continue
		}
		if parent.Kind != model.KindFolder || parent.PathID != dir {
			t.Errorf("%s: parent is %s %s, want folder %s", path, parent.Kind, parent.PathID, dir)
		}
	}
}
