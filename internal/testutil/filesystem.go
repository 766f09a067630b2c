package testutil

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"vaultindex/internal/index"
	"vaultindex/internal/model"
)

// MockFile represents an entry in the mock filesystem.
type MockFile struct {
	Content []byte
	Mode    fs.FileMode // type bits only; zero for regular files
	BornAt  *time.Time
}

// MockFilesystemManager is an in-memory filesystem for testing. Safe for
// concurrent use, so tests can mutate it while a watcher reads it.
type MockFilesystemManager struct {
	mu        sync.Mutex
	files     map[string]*MockFile
	readDirFn map[string]error
	statFn    map[string]error
}

// NewMockFilesystemManager creates an empty mock filesystem.
func NewMockFilesystemManager() *MockFilesystemManager {
	return &MockFilesystemManager{
		files:     make(map[string]*MockFile),
		readDirFn: make(map[string]error),
		statFn:    make(map[string]error),
	}
}

// AddFile adds a regular file, creating missing parent directories.
func (m *MockFilesystemManager) AddFile(path string, content []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addParents(path)
	born := FixedTime
	m.files[filepath.Clean(path)] = &MockFile{Content: content, BornAt: &born}
}

// AddDirectory adds a directory, creating missing parents.
func (m *MockFilesystemManager) AddDirectory(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addDir(filepath.Clean(path))
}

// AddSymlink adds a symlink entry. Symlinks are never followed.
func (m *MockFilesystemManager) AddSymlink(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addParents(path)
	m.files[filepath.Clean(path)] = &MockFile{Mode: fs.ModeSymlink}
}

// Remove deletes path and everything below it.
func (m *MockFilesystemManager) Remove(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	path = filepath.Clean(path)
	prefix := path + string(filepath.Separator)
	for p := range m.files {
		if p == path || strings.HasPrefix(p, prefix) {
			delete(m.files, p)
		}
	}
}

// Rename moves path and everything below it to newPath.
func (m *MockFilesystemManager) Rename(path, newPath string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	path, newPath = filepath.Clean(path), filepath.Clean(newPath)
	prefix := path + string(filepath.Separator)
	moved := make(map[string]*MockFile)
	for p, f := range m.files {
		if p == path || strings.HasPrefix(p, prefix) {
			moved[newPath+strings.TrimPrefix(p, path)] = f
			delete(m.files, p)
		}
	}
	for p, f := range moved {
		m.files[p] = f
	}
}

// FailReadDir makes ReadDir of path return err. A nil err clears the failure.
func (m *MockFilesystemManager) FailReadDir(path string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readDirFn[filepath.Clean(path)] = err
}

// FailStat makes Stat of path return err. A nil err clears the failure.
func (m *MockFilesystemManager) FailStat(path string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statFn[filepath.Clean(path)] = err
}

func (m *MockFilesystemManager) ReadDir(path string) ([]fs.DirEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	path = filepath.Clean(path)
	if err := m.readDirFn[path]; err != nil {
		return nil, &fs.PathError{Op: "readdir", Path: path, Err: err}
	}
	dir, ok := m.files[path]
	if !ok {
		return nil, &fs.PathError{Op: "readdir", Path: path, Err: fs.ErrNotExist}
	}
	if !dir.Mode.IsDir() {
		return nil, &fs.PathError{Op: "readdir", Path: path, Err: fmt.Errorf("not a directory")}
	}

	var entries []fs.DirEntry
	for p, f := range m.files {
		if p != path && filepath.Dir(p) == path {
			entries = append(entries, fs.FileInfoToDirEntry(&mockFileInfo{name: filepath.Base(p), file: f}))
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	return entries, nil
}

func (m *MockFilesystemManager) Stat(path string) (*index.FileMeta, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	path = filepath.Clean(path)
	if err := m.statFn[path]; err != nil {
		return nil, &fs.PathError{Op: "lstat", Path: path, Err: err}
	}
	f, ok := m.files[path]
	if !ok {
		return nil, &fs.PathError{Op: "lstat", Path: path, Err: fs.ErrNotExist}
	}

	meta := &index.FileMeta{Size: int64(len(f.Content)), BornAt: f.BornAt}
	switch {
	case f.Mode.IsDir():
		meta.Kind = model.KindFolder
	case f.Mode.IsRegular():
		meta.Kind = model.KindFile
	}
	return meta, nil
}

// IsDir does not follow mock symlinks; they have no target.
func (m *MockFilesystemManager) IsDir(path string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	path = filepath.Clean(path)
	if err := m.statFn[path]; err != nil {
		return false, &fs.PathError{Op: "stat", Path: path, Err: err}
	}
	f, ok := m.files[path]
	if !ok {
		return false, &fs.PathError{Op: "stat", Path: path, Err: fs.ErrNotExist}
	}
	return f.Mode.IsDir(), nil
}

func (m *MockFilesystemManager) MkdirAll(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addDir(filepath.Clean(path))
	return nil
}

// addDir and addParents expect m.mu to be held.
func (m *MockFilesystemManager) addDir(path string) {
	m.addParents(path)
	if _, ok := m.files[path]; !ok {
		born := FixedTime
		m.files[path] = &MockFile{Mode: fs.ModeDir, BornAt: &born}
	}
}

func (m *MockFilesystemManager) addParents(path string) {
	dir := filepath.Dir(filepath.Clean(path))
	if dir == path || dir == "." {
		return
	}
	if f, ok := m.files[dir]; ok && f.Mode.IsDir() {
		return
	}
	m.addDir(dir)
}

type mockFileInfo struct {
	name string
	file *MockFile
}

func (i *mockFileInfo) Name() string       { return i.name }
func (i *mockFileInfo) Size() int64        { return int64(len(i.file.Content)) }
func (i *mockFileInfo) Mode() fs.FileMode  { return i.file.Mode | 0o644 }
func (i *mockFileInfo) ModTime() time.Time { return FixedTime }
func (i *mockFileInfo) IsDir() bool        { return i.file.Mode.IsDir() }
func (i *mockFileInfo) Sys() any           { return i.file }

var _ index.FilesystemManager = (*MockFilesystemManager)(nil)
