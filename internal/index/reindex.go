package index

import (
	"context"
	"fmt"
	"path/filepath"

	"vaultindex/internal/model"
)

// Reindex replaces the index of v with a fresh walk of its root and returns
// the number of records written.
//
// The root is checked before anything is deleted: a missing or unreadable
// root leaves the existing index alone. The wipe and every insert share one
// transaction, so readers see either the old index or the new one.
func (s *Service) Reindex(ctx context.Context, v *model.Vault) (int, error) {
	root, err := vaultRoot(v)
	if err != nil {
		return 0, err
	}

	// The root may itself be a symlink to the indexed directory.
	isDir, err := s.fsys.IsDir(root)
	if err != nil {
		return 0, &IOError{Op: "stat vault root", Path: root, Err: err}
	}
	if !isDir {
		return 0, &IOError{Op: "stat vault root", Path: root, Err: fmt.Errorf("not a directory")}
	}

	release, err := s.locks.Acquire(ctx, v.ID)
	if err != nil {
		return 0, fmt.Errorf("waiting for vault lock: %w", err)
	}
	defer release()

	count, err := s.rebuild(ctx, v.ID, root)
	s.metrics.ReindexFinished(v.ID, count, err)
	if err != nil {
		return 0, fmt.Errorf("reindexing vault %s: %w", v.Name, err)
	}

	s.logger.Info("vault reindexed", "vault", v.Name, "root", root, "entries", count)
	return count, nil
}

func (s *Service) rebuild(ctx context.Context, vaultID, root string) (int, error) {
	walker := NewWalker(s.fsys, s.ignorerFor(root), s.logger)
	count := 0

	err := s.store.InTx(ctx, func(tx RecordStore) error {
		deleted, err := tx.DeleteAll(ctx, vaultID)
		if err != nil {
			return &StoreError{Op: "delete vault records", Err: err}
		}
		s.logger.Debug("cleared vault index", "vault_id", vaultID, "deleted", deleted)

		// Folders are yielded before their contents, so a child's parent is
		// always in the map by the time the child arrives.
		folders := make(map[string]string)
		for entry := range walker.Walk(root) {
			if err := ctx.Err(); err != nil {
				return err
			}

			var parentID *string
			if id, ok := folders[filepath.Dir(entry.Path)]; ok {
				parentID = &id
			}

			meta, err := s.fsys.Stat(entry.Path)
			if err != nil {
				s.logger.Debug("metadata unavailable", "path", entry.Path, "error", err)
				meta = nil
			}

			rec := s.newRecord(vaultID, entry.Path, entry.Kind, parentID, meta)
			if err := tx.Insert(ctx, rec); err != nil {
				return &StoreError{Op: "insert record", Err: err}
			}
			if entry.Kind == model.KindFolder {
				folders[entry.Path] = rec.ID
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}
