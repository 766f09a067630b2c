package index

import (
	"io/fs"
	"time"

	"vaultindex/internal/model"
)

// FileMeta is the metadata the index keeps about an entry.
type FileMeta struct {
	// Kind is empty for entries that are neither regular files nor
	// directories (symlinks, sockets, devices); those are never indexed.
	Kind   model.EntryKind
	Size   int64
	BornAt *time.Time // nil when the filesystem does not report a birth time
}

// FilesystemManager abstracts the filesystem so the engine can be tested
// without touching disk.
type FilesystemManager interface {
	// ReadDir lists a directory. Entries are in whatever order the platform returns.
	ReadDir(path string) ([]fs.DirEntry, error)

	// Stat describes path without following a final symlink. A missing path
	// yields an error matching fs.ErrNotExist.
	Stat(path string) (*FileMeta, error)

	// IsDir reports whether path is a directory, following symlinks. A
	// missing path yields an error matching fs.ErrNotExist.
	IsDir(path string) (bool, error)

	// MkdirAll creates path and any missing parents.
	MkdirAll(path string) error
}

// Ignorer decides whether a path, relative to a vault root, is excluded from the index.
type Ignorer interface {
	Match(relativePath string) bool
}

// IgnoreSource builds the ignore rules that apply under one vault root.
type IgnoreSource interface {
	ForRoot(root string) (Ignorer, error)
}

type noIgnore struct{}

func (noIgnore) Match(string) bool { return false }
