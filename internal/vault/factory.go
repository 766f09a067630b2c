package vault

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"vaultindex/internal/model"
)

// ErrUnsupportedProvider is returned for vault providers this host cannot index.
var ErrUnsupportedProvider = errors.New("unsupported vault provider")

// LocalFolderSettings are the provider settings of a local_folder vault.
type LocalFolderSettings struct {
	Path string `json:"path"`
}

// New builds a vault after validating its provider settings. The stored
// settings are normalized (for local_folder, the path is made absolute).
func New(id, name, provider string, data []byte, now time.Time) (*model.Vault, error) {
	if name == "" {
		return nil, fmt.Errorf("vault name is required")
	}
	normalized, err := NormalizeSettings(provider, data)
	if err != nil {
		return nil, err
	}
	return &model.Vault{
		ID:        id,
		Name:      name,
		Provider:  provider,
		Data:      normalized,
		CreatedAt: now,
	}, nil
}

// NormalizeSettings validates provider settings and returns them in canonical form.
func NormalizeSettings(provider string, data []byte) (json.RawMessage, error) {
	switch provider {
	case model.ProviderLocalFolder:
		settings, err := parseLocalFolder(data)
		if err != nil {
			return nil, err
		}
		out, err := json.Marshal(settings)
		if err != nil {
			return nil, fmt.Errorf("encoding local_folder settings: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, provider)
	}
}

// Root returns the canonical absolute directory indexed for v.
func Root(v *model.Vault) (string, error) {
	switch v.Provider {
	case model.ProviderLocalFolder:
		settings, err := parseLocalFolder(v.Data)
		if err != nil {
			return "", err
		}
		return settings.Path, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedProvider, v.Provider)
	}
}

func parseLocalFolder(data []byte) (*LocalFolderSettings, error) {
	var settings LocalFolderSettings
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&settings); err != nil {
		return nil, fmt.Errorf("parsing local_folder settings: %w", err)
	}
	if settings.Path == "" {
		return nil, fmt.Errorf("local_folder vault requires a path")
	}

	abs, err := filepath.Abs(settings.Path)
	if err != nil {
		return nil, fmt.Errorf("resolving vault path: %w", err)
	}
	settings.Path = filepath.Clean(abs)
	return &settings, nil
}
