package index

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"vaultindex/internal/model"
)

// WatcherState is the lifecycle state of a Watcher.
type WatcherState int

const (
	WatcherStarting WatcherState = iota
	WatcherWatching
	WatcherStopped
)

func (s WatcherState) String() string {
	switch s {
	case WatcherStarting:
		return "starting"
	case WatcherWatching:
		return "watching"
	case WatcherStopped:
		return "stopped"
	default:
		return fmt.Sprintf("WatcherState(%d)", int(s))
	}
}

// WatcherStatus is a point-in-time view of a watcher.
type WatcherStatus struct {
	VaultID   string
	VaultName string
	Root      string
	State     WatcherState
	Err       error // why the watcher stopped; nil for a clean stop
	Since     time.Time
	Events    int64
	Failures  int64
}

// Watcher keeps one vault's index in step with filesystem notifications.
type Watcher struct {
	svc      *Service
	vault    *model.Vault
	root     string
	notifier Notifier
	reindex  bool

	mu     sync.Mutex
	status WatcherStatus
}

// NewWatcher creates a watcher for v. When reindexFirst is set the vault is
// fully reindexed once the subscription is live and before events are applied.
func (s *Service) NewWatcher(v *model.Vault, notifier Notifier, reindexFirst bool) (*Watcher, error) {
	root, err := vaultRoot(v)
	if err != nil {
		return nil, err
	}
	return &Watcher{
		svc:      s,
		vault:    v,
		root:     root,
		notifier: notifier,
		reindex:  reindexFirst,
		status: WatcherStatus{
			VaultID:   v.ID,
			VaultName: v.Name,
			Root:      root,
			State:     WatcherStarting,
			Since:     s.clock.Now(),
		},
	}, nil
}

// Status returns a snapshot of the watcher's state.
func (w *Watcher) Status() WatcherStatus {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

// Run watches the vault until ctx is cancelled or notifications fail.
// It returns nil on cancellation, otherwise the error that stopped it.
func (w *Watcher) Run(ctx context.Context) (err error) {
	defer func() { w.stop(err) }()

	if err := w.svc.fsys.MkdirAll(w.root); err != nil {
		return &IOError{Op: "create vault root", Path: w.root, Err: err}
	}

	sub, err := w.notifier.Subscribe(w.root)
	if err != nil {
		return &IOError{Op: "subscribe", Path: w.root, Err: err}
	}
	defer sub.Close()

	if w.reindex {
		if _, err := w.svc.Reindex(ctx, w.vault); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.svc.logger.Error("initial reindex failed", "vault", w.vault.Name, "error", err)
		}
	}

	w.setState(WatcherWatching)
	w.svc.logger.Info("watching vault", "vault", w.vault.Name, "root", w.root)

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-sub.Errors():
			if !ok {
				return ErrSubscriptionClosed
			}
			return &IOError{Op: "receive notifications", Path: w.root, Err: err}
		case ev, ok := <-sub.Events():
			if !ok {
				return ErrSubscriptionClosed
			}
			if err := w.apply(ctx, ev); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				w.recordFailure()
				w.svc.metrics.EventFailed(w.vault.ID)
				w.svc.logger.Error("applying event", "vault", w.vault.Name, "kind", ev.Kind, "paths", ev.Paths, "error", err)
				continue
			}
			w.recordEvent()
			w.svc.metrics.EventApplied(w.vault.ID, ev.Kind)
		}
	}
}

// apply handles one event under the vault lock. Failures on one path do not
// prevent the remaining paths of the event from being applied.
func (w *Watcher) apply(ctx context.Context, ev Event) error {
	if ev.Kind == EventOther {
		return nil
	}

	release, err := w.svc.locks.Acquire(ctx, w.vault.ID)
	if err != nil {
		return err
	}
	defer release()

	r := w.svc.reconciler(w.vault.ID, w.root)
	paths := w.eventPaths(ev)

	switch ev.Kind {
	case EventRemove:
		if len(paths) == 0 {
			return nil
		}
		return r.remove(ctx, paths...)

	case EventCreate, EventModify:
		var errs []error
		for _, p := range paths {
			kind, err := r.reconcile(ctx, p)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", p, err))
				continue
			}
			if ev.Kind == EventCreate && kind == model.KindFolder {
				if err := r.reconcileTree(ctx, p); err != nil {
					errs = append(errs, fmt.Errorf("%s: %w", p, err))
				}
			}
		}
		return errors.Join(errs...)
	}
	return nil
}

// eventPaths drops the root and anything outside it.
func (w *Watcher) eventPaths(ev Event) []string {
	paths := make([]string, 0, len(ev.Paths))
	for _, p := range ev.Paths {
		p = filepath.Clean(p)
		rel, ok := relativeTo(w.root, p)
		if !ok {
			w.svc.logger.Warn("event outside vault root", "vault", w.vault.Name, "path", p)
			continue
		}
		if rel == "." {
			continue
		}
		paths = append(paths, p)
	}
	return paths
}

func (w *Watcher) setState(state WatcherState) {
	w.mu.Lock()
	w.status.State = state
	w.status.Since = w.svc.clock.Now()
	w.mu.Unlock()
	w.svc.metrics.WatcherStateChanged(w.vault.ID, state)
}

func (w *Watcher) stop(err error) {
	w.mu.Lock()
	w.status.Err = err
	w.mu.Unlock()
	w.setState(WatcherStopped)

	if err != nil {
		w.svc.logger.Error("watcher stopped", "vault", w.vault.Name, "error", err)
	} else {
		w.svc.logger.Info("watcher stopped", "vault", w.vault.Name)
	}
}

func (w *Watcher) recordEvent() {
	w.mu.Lock()
	w.status.Events++
	w.mu.Unlock()
}

func (w *Watcher) recordFailure() {
	w.mu.Lock()
	w.status.Events++
	w.status.Failures++
	w.mu.Unlock()
}
