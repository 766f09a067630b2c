package index

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"vaultindex/internal/model"
)

// Supervisor runs one Watcher per local-folder vault. Watchers are
// independent: a watcher that stops or panics leaves the others running, and
// nothing is restarted.
type Supervisor struct {
	svc            *Service
	vaults         VaultSource
	notifier       Notifier
	reindexOnStart bool

	mu       sync.Mutex
	watchers map[string]*Watcher
	group    errgroup.Group
}

func NewSupervisor(svc *Service, vaults VaultSource, notifier Notifier, reindexOnStart bool) *Supervisor {
	return &Supervisor{
		svc:            svc,
		vaults:         vaults,
		notifier:       notifier,
		reindexOnStart: reindexOnStart,
		watchers:       make(map[string]*Watcher),
	}
}

// Start launches a watcher for every local-folder vault and returns how many
// were started. Vaults that cannot be watched are logged and skipped.
func (s *Supervisor) Start(ctx context.Context) (int, error) {
	vaults, err := s.vaults.ListVaultsByProvider(ctx, model.ProviderLocalFolder)
	if err != nil {
		return 0, fmt.Errorf("listing vaults: %w", err)
	}

	started := 0
	for _, v := range vaults {
		if err := s.StartWatcher(ctx, v); err != nil {
			s.svc.logger.Error("not watching vault", "vault", v.Name, "error", err)
			continue
		}
		started++
	}
	return started, nil
}

// StartWatcher spawns a watcher for v and returns without waiting for it.
func (s *Supervisor) StartWatcher(ctx context.Context, v *model.Vault) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.watchers[v.ID]; ok {
		return fmt.Errorf("vault %s: %w", v.Name, ErrAlreadyWatched)
	}

	w, err := s.svc.NewWatcher(v, s.notifier, s.reindexOnStart)
	if err != nil {
		return err
	}
	s.watchers[v.ID] = w

	// Watcher failures, panics included, are surfaced through Status and
	// never returned to the group: one failing vault must not cancel the others.
	s.group.Go(func() error {
		defer func() {
			if p := recover(); p != nil {
				s.svc.logger.Error("watcher panicked", "vault", v.Name, "panic", p, "stack", string(debug.Stack()))
				w.stop(fmt.Errorf("watcher for vault %s panicked: %v", v.Name, p))
			}
		}()
		_ = w.Run(ctx)
		return nil
	})
	return nil
}

// Status reports every watcher, ordered by vault name.
func (s *Supervisor) Status() []WatcherStatus {
	s.mu.Lock()
	statuses := make([]WatcherStatus, 0, len(s.watchers))
	for _, w := range s.watchers {
		statuses = append(statuses, w.Status())
	}
	s.mu.Unlock()

	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].VaultName < statuses[j].VaultName
	})
	return statuses
}

// ReindexAll fully reindexes every watched vault, one after another.
func (s *Supervisor) ReindexAll(ctx context.Context) error {
	s.mu.Lock()
	vaults := make([]*model.Vault, 0, len(s.watchers))
	for _, w := range s.watchers {
		vaults = append(vaults, w.vault)
	}
	s.mu.Unlock()

	sort.Slice(vaults, func(i, j int) bool { return vaults[i].Name < vaults[j].Name })

	var errs []error
	for _, v := range vaults {
		if _, err := s.svc.Reindex(ctx, v); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Wait blocks until every watcher has stopped.
func (s *Supervisor) Wait() error {
	return s.group.Wait()
}
