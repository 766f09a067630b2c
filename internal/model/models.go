package model

import (
	"encoding/json"
	"time"
)

// EntryKind classifies an indexed filesystem entry.
type EntryKind string

const (
	KindFile   EntryKind = "file"
	KindFolder EntryKind = "folder"
)

// Valid reports whether k is one of the known kinds.
func (k EntryKind) Valid() bool {
	return k == KindFile || k == KindFolder
}

// ProviderLocalFolder is the provider of vaults backed by a directory on this host.
const ProviderLocalFolder = "local_folder"

// Vault is a named root whose contents are indexed.
type Vault struct {
	ID        string          // xid
	Name      string          // Unique across vaults
	Provider  string          // e.g. "local_folder"
	Data      json.RawMessage // Provider settings
	CreatedAt time.Time
}

// Record is one indexed filesystem entry (file or folder) within a vault.
type Record struct {
	ID        string     // xid, time-ordered
	VaultID   string     // Foreign key to Vault
	PathID    string     // Canonical absolute path; natural key within the vault
	Name      string     // Final path component
	Kind      EntryKind  // File or folder
	ParentID  *string    // Folder record of the parent directory; nil at the vault root
	CreatedAt *time.Time // Birth time, if the filesystem reports one
	Size      *int64     // Files only
}

// IsRoot reports whether the record is a direct child of the vault root.
func (r *Record) IsRoot() bool {
	return r.ParentID == nil
}

// IndexRun records one full reindex of a vault.
type IndexRun struct {
	ID         int64
	VaultID    string
	StartedAt  time.Time
	FinishedAt *time.Time
	Status     string // "running", "success" or "error"
	EntryCount int64
	Error      string
}

// ListQuery selects a page of records.
//
// A nil ParentID selects entries at the vault root, unless Search is set, in
// which case the whole vault is searched. Results are ordered by ascending ID
// and start strictly after AfterID.
type ListQuery struct {
	VaultID  string
	ParentID *string
	AfterID  string
	Search   string
	Limit    int
}
