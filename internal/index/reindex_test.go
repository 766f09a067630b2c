package index_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultindex/internal/database"
	"vaultindex/internal/fs"
	"vaultindex/internal/index"
	"vaultindex/internal/model"
	"vaultindex/internal/testutil"
)

func TestService_Reindex(t *testing.T) {
	ctx := context.Background()

	t.Run("indexes every file and folder with parent links", func(t *testing.T) {
		h := newHarness(t)
		h.fsys.AddFile(p("a.txt"), []byte("hello"))
		h.fsys.AddFile(p("docs", "b.txt"), []byte("b"))
		h.fsys.AddFile(p("docs", "deep", "c.txt"), nil)
		h.fsys.AddDirectory(p("empty"))

		n, err := h.svc.Reindex(ctx, h.vault)
		require.NoError(t, err)
		assert.Equal(t, 6, n) // 3 files, 3 folders

		records := h.records(t)
		assert.Len(t, records, n)
		for _, path := range []string{p("a.txt"), p("docs"), p("docs", "b.txt"), p("docs", "deep"), p("docs", "deep", "c.txt"), p("empty")} {
			assert.Contains(t, records, path)
		}
		assertHierarchy(t, records)

		file := records[p("a.txt")]
		assert.Equal(t, model.KindFile, file.Kind)
		assert.Equal(t, "a.txt", file.Name)
		require.NotNil(t, file.Size)
		assert.Equal(t, int64(5), *file.Size)
		require.NotNil(t, file.CreatedAt)
		assert.True(t, file.CreatedAt.Equal(testutil.FixedTime))

		folder := records[p("docs")]
		assert.Equal(t, model.KindFolder, folder.Kind)
		assert.Nil(t, folder.Size)
	})

	t.Run("rebuild is idempotent", func(t *testing.T) {
		h := newHarness(t)
		h.fsys.AddFile(p("x", "y", "z.txt"), nil)
		h.fsys.AddFile(p("x", "w.txt"), nil)

		_, err := h.svc.Reindex(ctx, h.vault)
		require.NoError(t, err)
		first := topology(h.records(t))

		_, err = h.svc.Reindex(ctx, h.vault)
		require.NoError(t, err)
		assert.Equal(t, first, topology(h.records(t)))
	})

	t.Run("replaces entries that no longer exist", func(t *testing.T) {
		h := newHarness(t)
		h.fsys.AddFile(p("old.txt"), nil)
		_, err := h.svc.Reindex(ctx, h.vault)
		require.NoError(t, err)

		h.fsys.Remove(p("old.txt"))
		h.fsys.AddFile(p("new.txt"), nil)
		_, err = h.svc.Reindex(ctx, h.vault)
		require.NoError(t, err)

		records := h.records(t)
		assert.NotContains(t, records, p("old.txt"))
		assert.Contains(t, records, p("new.txt"))
	})

	t.Run("missing root keeps the existing index", func(t *testing.T) {
		h := newHarness(t)
		h.fsys.AddFile(p("keep.txt"), nil)
		_, err := h.svc.Reindex(ctx, h.vault)
		require.NoError(t, err)

		h.fsys.Remove(root)
		_, err = h.svc.Reindex(ctx, h.vault)

		var ioErr *index.IOError
		require.ErrorAs(t, err, &ioErr)
		assert.Equal(t, root, ioErr.Path)
		assert.Contains(t, h.records(t), p("keep.txt"))
	})

	t.Run("root that is a file is rejected", func(t *testing.T) {
		h := newHarness(t)
		h.fsys.Remove(root)
		h.fsys.AddFile(root, nil)

		_, err := h.svc.Reindex(ctx, h.vault)
		var ioErr *index.IOError
		require.ErrorAs(t, err, &ioErr)
	})

	t.Run("unreadable subfolder is indexed but not descended", func(t *testing.T) {
		h := newHarness(t)
		h.fsys.AddFile(p("locked", "secret.txt"), nil)
		h.fsys.AddFile(p("open.txt"), nil)
		h.fsys.FailReadDir(p("locked"), errors.New("permission denied"))

		n, err := h.svc.Reindex(ctx, h.vault)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("metadata failure leaves size and birth time empty", func(t *testing.T) {
		h := newHarness(t)
		h.fsys.AddFile(p("flaky.txt"), []byte("abc"))
		h.fsys.FailStat(p("flaky.txt"), errors.New("stale file handle"))

		_, err := h.svc.Reindex(ctx, h.vault)
		require.NoError(t, err)

		rec := h.records(t)[p("flaky.txt")]
		require.NotNil(t, rec)
		assert.Nil(t, rec.Size)
		assert.Nil(t, rec.CreatedAt)
	})

	t.Run("cancelled context aborts", func(t *testing.T) {
		h := newHarness(t)
		h.fsys.AddFile(p("a.txt"), nil)

		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := h.svc.Reindex(cctx, h.vault)
		assert.Error(t, err)
	})
}

func TestService_Reindex_SymlinkedRoot(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "real")
	require.NoError(t, os.MkdirAll(filepath.Join(target, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(target, "sub", "a.txt"), []byte("a"), 0o644))
	link := filepath.Join(dir, "link")
	require.NoError(t, os.Symlink(target, link))

	store := testutil.NewTestStore(t)
	v := testutil.CreateLocalVault(t, store, "vault-1", "linked", link)
	svc := index.NewService(store, fs.NewOSFilesystemManager(), nil, index.NewNopLogger(), nil, testutil.FixedClock(), testutil.NewStubIDGenerator())

	n, err := svc.Reindex(context.Background(), v)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	records := testutil.RecordPaths(testutil.AllRecords(t, store, v.ID))
	assert.Contains(t, records, filepath.Join(link, "sub"))
	assert.Contains(t, records, filepath.Join(link, "sub", "a.txt"))
}

func TestService_Reindex_StoreFailureRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store, err := database.NewSQLStoreFromDB(db, "sqlite")
	require.NoError(t, err)

	fsys := testutil.NewMockFilesystemManager()
	fsys.AddFile(p("a.txt"), nil)
	fsys.AddFile(p("b.txt"), nil)

	svc := index.NewService(store, fsys, nil, index.NewNopLogger(), nil, testutil.FixedClock(), testutil.NewStubIDGenerator())
	v := testutil.NewLocalVault("vault-1", "docs", root)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM index_records WHERE vault_id = ?")).
		WithArgs(v.ID).
		WillReturnResult(sqlmock.NewResult(0, 10))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO index_records")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO index_records")).
		WillReturnError(errors.New("constraint failed"))
	mock.ExpectRollback()

	n, err := svc.Reindex(context.Background(), v)
	require.Error(t, err)
	assert.Zero(t, n)

	var storeErr *index.StoreError
	assert.ErrorAs(t, err, &storeErr)
	require.NoError(t, mock.ExpectationsWereMet())
}

// topology maps each path to its parent's path, so two indexes built with
// different IDs can be compared.
func topology(records map[string]*model.Record) map[string]string {
	byID := make(map[string]string, len(records))
	for path, rec := range records {
		byID[rec.ID] = path
	}
	out := make(map[string]string, len(records))
	for path, rec := range records {
		parent := filepath.Dir(root)
		if rec.ParentID != nil {
			parent = byID[*rec.ParentID]
		}
		out[path] = string(rec.Kind) + ":" + parent
	}
	return out
}
