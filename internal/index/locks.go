package index

import (
	"context"
	"sync"
)

// VaultLocks serializes work on a vault: a full reindex holds the lock for
// its whole run, the watcher takes it per event.
type VaultLocks struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func NewVaultLocks() *VaultLocks {
	return &VaultLocks{slots: make(map[string]chan struct{})}
}

// Acquire blocks until the vault's lock is free or ctx is done. The returned
// release func must be called exactly once.
func (l *VaultLocks) Acquire(ctx context.Context, vaultID string) (func(), error) {
	slot := l.slot(vaultID)
	select {
	case slot <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-slot }) }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *VaultLocks) slot(vaultID string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.slots[vaultID]
	if !ok {
		s = make(chan struct{}, 1)
		l.slots[vaultID] = s
	}
	return s
}
