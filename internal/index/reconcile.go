package index

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"vaultindex/internal/model"
)

// ReconcilePath brings the index entry for one path in line with the disk:
// a path that exists is indexed (with its missing ancestors), a path that is
// gone is removed along with anything indexed beneath it.
func (s *Service) ReconcilePath(ctx context.Context, v *model.Vault, path string) error {
	root, err := vaultRoot(v)
	if err != nil {
		return err
	}

	release, err := s.locks.Acquire(ctx, v.ID)
	if err != nil {
		return fmt.Errorf("waiting for vault lock: %w", err)
	}
	defer release()

	r := s.reconciler(v.ID, root)
	if _, err := r.reconcile(ctx, path); err != nil {
		return fmt.Errorf("reconciling %s: %w", path, err)
	}
	return nil
}

// reconciler applies single-path corrections for one vault. Callers hold the
// vault lock.
type reconciler struct {
	svc     *Service
	vaultID string
	root    string
	ignore  Ignorer
}

func (s *Service) reconciler(vaultID, root string) *reconciler {
	return &reconciler{svc: s, vaultID: vaultID, root: root, ignore: s.ignorerFor(root)}
}

// reconcile returns the kind now indexed for path, or "" when path is not
// indexed after the call.
func (r *reconciler) reconcile(ctx context.Context, path string) (model.EntryKind, error) {
	path = filepath.Clean(path)
	rel, ok := relativeTo(r.root, path)
	if !ok {
		return "", ErrOutsideVault
	}
	if rel == "." {
		return "", nil
	}
	if ignored(r.ignore, rel) {
		return "", r.remove(ctx, path)
	}

	meta, err := r.svc.fsys.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", r.remove(ctx, path)
	}
	if err != nil {
		return "", &IOError{Op: "stat", Path: path, Err: err}
	}
	if !meta.Kind.Valid() {
		return "", r.remove(ctx, path)
	}

	parentID, err := r.parent(ctx, filepath.Dir(path))
	if err != nil {
		return "", err
	}

	rec := r.svc.newRecord(r.vaultID, path, meta.Kind, parentID, meta)
	inserted, err := r.svc.store.InsertIfAbsent(ctx, rec)
	if err != nil {
		return "", &StoreError{Op: "insert record", Err: err}
	}
	if inserted {
		r.svc.logger.Debug("indexed", "vault_id", r.vaultID, "path", path, "kind", meta.Kind)
		return meta.Kind, nil
	}

	existing, err := r.svc.store.FindByPath(ctx, r.vaultID, path)
	if err != nil {
		return "", &StoreError{Op: "find record", Err: err}
	}
	if existing != nil && existing.Kind == meta.Kind {
		return meta.Kind, nil
	}

	// The path changed kind since it was indexed. Records are never updated
	// in place, so drop the old one (and its subtree) and insert afresh.
	if err := r.remove(ctx, path); err != nil {
		return "", err
	}
	if _, err := r.svc.store.InsertIfAbsent(ctx, rec); err != nil {
		return "", &StoreError{Op: "insert record", Err: err}
	}
	r.svc.logger.Debug("reindexed changed kind", "vault_id", r.vaultID, "path", path, "kind", meta.Kind)
	return meta.Kind, nil
}

// parent returns the record ID for directory dir, indexing it first if needed.
// The vault root has no record and yields nil.
func (r *reconciler) parent(ctx context.Context, dir string) (*string, error) {
	if dir == r.root {
		return nil, nil
	}

	rec, err := r.svc.store.FindByPath(ctx, r.vaultID, dir)
	if err != nil {
		return nil, &StoreError{Op: "find parent", Err: err}
	}
	if rec != nil && rec.Kind == model.KindFolder {
		return &rec.ID, nil
	}

	kind, err := r.reconcile(ctx, dir)
	if err != nil {
		return nil, err
	}
	if kind != model.KindFolder {
		return nil, &IOError{Op: "resolve parent", Path: dir, Err: fs.ErrNotExist}
	}

	rec, err = r.svc.store.FindByPath(ctx, r.vaultID, dir)
	if err != nil {
		return nil, &StoreError{Op: "find parent", Err: err}
	}
	if rec == nil {
		return nil, &IOError{Op: "resolve parent", Path: dir, Err: fs.ErrNotExist}
	}
	return &rec.ID, nil
}

func (r *reconciler) remove(ctx context.Context, paths ...string) error {
	n, err := r.svc.store.DeleteByPaths(ctx, r.vaultID, paths)
	if err != nil {
		return &StoreError{Op: "delete records", Err: err}
	}
	if n > 0 {
		r.svc.logger.Debug("removed from index", "vault_id", r.vaultID, "paths", paths, "deleted", n)
	}
	return nil
}

// reconcileTree reconciles dir's contents, for a folder that appeared in one
// piece. Ignore rules are relative to the vault root, so they are left to
// reconcile rather than the walker.
func (r *reconciler) reconcileTree(ctx context.Context, dir string) error {
	walker := NewWalker(r.svc.fsys, nil, r.svc.logger)
	var errs []error
	for entry := range walker.Walk(dir) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := r.reconcile(ctx, entry.Path); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
