package index

import (
	"iter"
	"path/filepath"

	"vaultindex/internal/model"
)

// Entry is one file or folder found by a Walker.
type Entry struct {
	Path string
	Kind model.EntryKind
}

// Walker enumerates a directory tree. It does not touch the store.
type Walker struct {
	fsys   FilesystemManager
	ignore Ignorer
	logger Logger
}

func NewWalker(fsys FilesystemManager, ignore Ignorer, logger Logger) *Walker {
	if ignore == nil {
		ignore = noIgnore{}
	}
	return &Walker{fsys: fsys, ignore: ignore, logger: logger}
}

// Walk yields every file and folder below root, depth-first, with each folder
// before its contents. root itself is not yielded. Symlinks and special files
// are skipped, as are ignored paths and everything under them.
//
// Directories that cannot be read are logged and skipped; the walk goes on
// with the next entry. An unreadable root therefore yields nothing.
func (w *Walker) Walk(root string) iter.Seq[Entry] {
	root = filepath.Clean(root)
	return func(yield func(Entry) bool) {
		w.walk(root, root, yield)
	}
}

func (w *Walker) walk(root, dir string, yield func(Entry) bool) bool {
	entries, err := w.fsys.ReadDir(dir)
	if err != nil {
		w.logger.Warn("skipping unreadable directory", "path", dir, "error", err)
		return true
	}

	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		if rel, err := filepath.Rel(root, path); err == nil && w.ignore.Match(rel) {
			continue
		}

		switch {
		case e.Type().IsRegular():
			if !yield(Entry{Path: path, Kind: model.KindFile}) {
				return false
			}
		case e.IsDir():
			if !yield(Entry{Path: path, Kind: model.KindFolder}) {
				return false
			}
			if !w.walk(root, path, yield) {
				return false
			}
		}
	}
	return true
}
