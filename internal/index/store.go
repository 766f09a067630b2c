package index

import (
	"context"

	"vaultindex/internal/model"
)

// RecordStore holds the index records of every vault. Implementations must
// make each method atomic on its own; multi-step atomicity comes from Store.InTx.
type RecordStore interface {
	// DeleteAll removes every record of a vault and returns how many were removed.
	DeleteAll(ctx context.Context, vaultID string) (int64, error)

	// Insert adds a record unconditionally. Fails if the vault already has a
	// record with the same PathID.
	Insert(ctx context.Context, rec *model.Record) error

	// InsertIfAbsent adds a record unless the vault already has one with the
	// same PathID. It must be a single conditional statement, not a lookup
	// followed by an insert. Reports whether the record was inserted.
	InsertIfAbsent(ctx context.Context, rec *model.Record) (bool, error)

	// DeleteByPaths removes the vault's records whose PathID is in pathIDs.
	// Records parented (directly or not) by a removed folder go with it.
	DeleteByPaths(ctx context.Context, vaultID string, pathIDs []string) (int64, error)

	// FindByPath returns the vault's record for pathID, or nil if there is none.
	FindByPath(ctx context.Context, vaultID string, pathID string) (*model.Record, error)

	// List returns one page of records ordered by ascending ID.
	List(ctx context.Context, q model.ListQuery) ([]*model.Record, error)
}

// Store is a RecordStore that can run several operations in one transaction.
type Store interface {
	RecordStore

	// InTx runs fn inside a transaction. The transaction commits if fn returns
	// nil and rolls back otherwise, including on panic.
	InTx(ctx context.Context, fn func(tx RecordStore) error) error
}

// VaultSource looks up configured vaults.
type VaultSource interface {
	// FindVault returns the vault with the given ID, or nil if there is none.
	FindVault(ctx context.Context, id string) (*model.Vault, error)

	// ListVaultsByProvider returns every vault of one provider kind, ordered by name.
	ListVaultsByProvider(ctx context.Context, provider string) ([]*model.Vault, error)
}
