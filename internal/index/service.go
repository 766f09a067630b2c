package index

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"vaultindex/internal/model"
	"vaultindex/internal/vault"
)

const (
	DefaultListLimit = 100
	MaxListLimit     = 1000
)

// Service is the indexing engine. It rebuilds vault indexes, reconciles single
// paths against the disk and serves paginated listings. Watchers are created
// from a Service and share its locks.
type Service struct {
	store   Store
	fsys    FilesystemManager
	ignore  IgnoreSource
	logger  Logger
	metrics Metrics
	clock   Clock
	idgen   IDGenerator
	locks   *VaultLocks
}

// NewService creates a Service. ignore and metrics may be nil.
func NewService(store Store, fsys FilesystemManager, ignore IgnoreSource, logger Logger, metrics Metrics, clock Clock, idgen IDGenerator) *Service {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &Service{
		store:   store,
		fsys:    fsys,
		ignore:  ignore,
		logger:  logger,
		metrics: metrics,
		clock:   clock,
		idgen:   idgen,
		locks:   NewVaultLocks(),
	}
}

// List returns one page of a vault's records. The limit is clamped to
// [1, MaxListLimit], with DefaultListLimit when unset.
func (s *Service) List(ctx context.Context, q model.ListQuery) ([]*model.Record, error) {
	if q.VaultID == "" {
		return nil, fmt.Errorf("vault id is required")
	}
	switch {
	case q.Limit <= 0:
		q.Limit = DefaultListLimit
	case q.Limit > MaxListLimit:
		q.Limit = MaxListLimit
	}

	records, err := s.store.List(ctx, q)
	if err != nil {
		return nil, &StoreError{Op: "list records", Err: err}
	}
	return records, nil
}

// vaultRoot resolves the canonical root directory of v.
func vaultRoot(v *model.Vault) (string, error) {
	root, err := vault.Root(v)
	if err != nil {
		return "", fmt.Errorf("resolving root of vault %s: %w", v.ID, err)
	}
	return root, nil
}

func (s *Service) ignorerFor(root string) Ignorer {
	if s.ignore == nil {
		return noIgnore{}
	}
	ign, err := s.ignore.ForRoot(root)
	if err != nil {
		s.logger.Warn("ignore rules unavailable, indexing everything", "root", root, "error", err)
		return noIgnore{}
	}
	return ign
}

// relativeTo returns path relative to root, or false when path is not root
// or below it.
func relativeTo(root, path string) (string, bool) {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return rel, true
}

// ignored reports whether rel or any of its ancestors is matched by ign.
func ignored(ign Ignorer, rel string) bool {
	for p := rel; p != "." && p != string(filepath.Separator); p = filepath.Dir(p) {
		if ign.Match(p) {
			return true
		}
	}
	return false
}

func (s *Service) newRecord(vaultID, path string, kind model.EntryKind, parentID *string, meta *FileMeta) *model.Record {
	rec := &model.Record{
		ID:       s.idgen.New(),
		VaultID:  vaultID,
		PathID:   path,
		Name:     filepath.Base(path),
		Kind:     kind,
		ParentID: parentID,
	}
	if meta != nil {
		rec.CreatedAt = meta.BornAt
		if kind == model.KindFile {
			size := meta.Size
			rec.Size = &size
		}
	}
	return rec
}
