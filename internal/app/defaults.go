package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// Environment overrides for the default locations.
const (
	EnvConfigPath = "VAULTINDEX_CONFIG_PATH"
	EnvHome       = "VAULTINDEX_HOME"
)

// GetDefaults returns where vaultindex keeps its files:
//   - config_path: the TOML config ($VAULTINDEX_CONFIG_PATH, else ~/.config/vaultindex.toml)
//   - base_dir: index database and logs ($VAULTINDEX_HOME, else ~/.local/share/vaultindex)
//   - log_dir: base_dir/log
func GetDefaults() (map[string]string, error) {
	configPath, err := envOrHome(EnvConfigPath, ".config", "vaultindex.toml")
	if err != nil {
		return nil, err
	}
	baseDir, err := envOrHome(EnvHome, ".local", "share", "vaultindex")
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
	}, nil
}

// envOrHome returns the value of env, or the path elem under the user's home
// directory when env is unset or empty.
func envOrHome(env string, elem ...string) (string, error) {
	if v := os.Getenv(env); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory for %s: %w", env, err)
	}
	return filepath.Join(append([]string{home}, elem...)...), nil
}
