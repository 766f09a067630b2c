package testutil

import (
	"encoding/json"

	"vaultindex/internal/model"
)

// NewLocalVault builds a local_folder vault without storing it.
func NewLocalVault(id, name, root string) *model.Vault {
	data, _ := json.Marshal(map[string]string{"path": root})
	return &model.Vault{
		ID:        id,
		Name:      name,
		Provider:  model.ProviderLocalFolder,
		Data:      data,
		CreatedAt: FixedTime,
	}
}
