package fs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"vaultindex/internal/index"
)

// FsnotifyNotifier watches directory trees with fsnotify. fsnotify watches
// single directories, so a subscription adds every directory under the root
// and keeps adding new ones as they are created.
type FsnotifyNotifier struct {
	logger index.Logger
}

func NewFsnotifyNotifier(logger index.Logger) *FsnotifyNotifier {
	return &FsnotifyNotifier{logger: logger}
}

func (n *FsnotifyNotifier) Subscribe(root string) (index.Subscription, error) {
	w, err := fsnotify.NewBufferedWatcher(256)
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}

	sub := &fsnotifySubscription{
		watcher: w,
		logger:  n.logger,
		events:  make(chan index.Event, 64),
		errors:  make(chan error, 1),
		done:    make(chan struct{}),
	}
	if err := sub.addTree(root); err != nil {
		w.Close()
		return nil, err
	}

	go sub.loop()
	return sub, nil
}

type fsnotifySubscription struct {
	watcher *fsnotify.Watcher
	logger  index.Logger

	events chan index.Event
	errors chan error

	done      chan struct{}
	closeOnce sync.Once
}

func (s *fsnotifySubscription) Events() <-chan index.Event { return s.events }
func (s *fsnotifySubscription) Errors() <-chan error       { return s.errors }

func (s *fsnotifySubscription) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.watcher.Close()
	})
	return err
}

// addTree watches dir and every directory below it. dir may be a symlink to
// a directory; links below it are not followed. Only a failure on dir itself
// is returned; unreadable subdirectories are logged and skipped.
func (s *fsnotifySubscription) addTree(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("walking %s: %w", dir, err)
	}
	if err := s.watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			s.addSubtree(filepath.Join(dir, e.Name()))
		}
	}
	return nil
}

func (s *fsnotifySubscription) addSubtree(dir string) {
	filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			s.logger.Warn("not watching unreadable directory", "path", path, "error", err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if err := s.watcher.Add(path); err != nil {
			s.logger.Warn("not watching directory", "path", path, "error", err)
		}
		return nil
	})
}

func (s *fsnotifySubscription) loop() {
	defer close(s.events)
	defer close(s.errors)

	for {
		select {
		case <-s.done:
			return

		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			mapped, ok := s.translate(ev)
			if !ok {
				continue
			}
			select {
			case s.events <- mapped:
			case <-s.done:
				return
			}

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			select {
			case s.errors <- err:
			case <-s.done:
				return
			}
		}
	}
}

// translate maps an fsnotify event and keeps the watch list in step with the
// tree. Chmod-only events are dropped.
func (s *fsnotifySubscription) translate(ev fsnotify.Event) (index.Event, bool) {
	path := filepath.Clean(ev.Name)

	switch {
	case ev.Has(fsnotify.Create):
		if info, err := os.Lstat(path); err == nil && info.IsDir() {
			if err := s.addTree(path); err != nil {
				s.logger.Warn("not watching new directory", "path", path, "error", err)
			}
		}
		return index.Event{Kind: index.EventCreate, Paths: []string{path}}, true

	case ev.Has(fsnotify.Remove):
		s.unwatch(path)
		return index.Event{Kind: index.EventRemove, Paths: []string{path}}, true

	case ev.Has(fsnotify.Rename):
		// The old name is gone; the new name, if inside the tree, arrives as
		// a separate Create.
		s.unwatch(path)
		return index.Event{Kind: index.EventModify, Paths: []string{path}}, true

	case ev.Has(fsnotify.Write):
		return index.Event{Kind: index.EventModify, Paths: []string{path}}, true
	}
	return index.Event{}, false
}

func (s *fsnotifySubscription) unwatch(path string) {
	err := s.watcher.Remove(path)
	if err != nil && !errors.Is(err, fsnotify.ErrNonExistentWatch) && !errors.Is(err, fsnotify.ErrClosed) {
		s.logger.Debug("removing watch", "path", path, "error", err)
	}
}

var _ index.Notifier = (*FsnotifyNotifier)(nil)
