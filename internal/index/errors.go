package index

import (
	"errors"
	"fmt"
)

var (
	// ErrOutsideVault is returned when a path does not lie under the vault root.
	ErrOutsideVault = errors.New("path is outside the vault root")

	// ErrAlreadyWatched is returned when a second watcher is requested for a vault.
	ErrAlreadyWatched = errors.New("vault is already watched")

	// ErrSubscriptionClosed is returned when the notifier stops delivering events
	// without being asked to.
	ErrSubscriptionClosed = errors.New("notification subscription closed")
)

// IOError is a filesystem failure: reading a directory, stat, mkdir or subscribing.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// StoreError is a failed store query or transaction.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
