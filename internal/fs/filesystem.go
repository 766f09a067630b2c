package fs

import (
	"io/fs"
	"os"

	"vaultindex/internal/index"
	"vaultindex/internal/model"
)

// OSFilesystemManager is the real filesystem implementation of index.FilesystemManager.
type OSFilesystemManager struct{}

func NewOSFilesystemManager() *OSFilesystemManager {
	return &OSFilesystemManager{}
}

func (m *OSFilesystemManager) ReadDir(path string) ([]fs.DirEntry, error) {
	return os.ReadDir(path)
}

// Stat describes path without following a final symlink. Symlinks, devices,
// pipes and sockets get an empty Kind.
func (m *OSFilesystemManager) Stat(path string) (*index.FileMeta, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return nil, err
	}

	meta := &index.FileMeta{Size: info.Size()}
	switch {
	case info.Mode().IsRegular():
		meta.Kind = model.KindFile
	case info.IsDir():
		meta.Kind = model.KindFolder
	default:
		return meta, nil
	}
	meta.BornAt = birthTime(path)
	return meta, nil
}

func (m *OSFilesystemManager) IsDir(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}

func (m *OSFilesystemManager) MkdirAll(path string) error {
	return os.MkdirAll(path, 0o755)
}

var _ index.FilesystemManager = (*OSFilesystemManager)(nil)
