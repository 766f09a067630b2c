package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the vaultindex configuration file.
type Config struct {
	HostID   string         `toml:"host_id"`
	BaseDir  string         `toml:"base_dir"`
	LogDir   string         `toml:"log_dir"`
	Database DatabaseConfig `toml:"database"`
	Watcher  WatcherConfig  `toml:"watcher"`
	Log      LogConfig      `toml:"log"`
	Metrics  MetricsConfig  `toml:"metrics"`
}

// DatabaseConfig selects the index store.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type         string `toml:"type"`                     // "sqlite", "postgres" or "memory"
	DataDir      string `toml:"data_dir,omitempty"`       // type=sqlite: file is <data_dir>/<host_id>.db
	DSN          string `toml:"dsn,omitempty"`            // type=postgres
	MaxOpenConns int    `toml:"max_open_conns,omitempty"` // type=postgres; sqlite always uses one
}

// WatcherConfig tunes the live watchers started by serve.
type WatcherConfig struct {
	Ignore         []string `toml:"ignore"`
	ReindexOnStart bool     `toml:"reindex_on_start"`
}

// LogConfig controls the log file. Rotation sizes are in megabytes and days.
type LogConfig struct {
	Level      string `toml:"level"` // debug, info, warn or error
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

// MetricsConfig controls the Prometheus endpoint. An empty ListenAddr disables it.
type MetricsConfig struct {
	ListenAddr string `toml:"listen_addr"`
}

// NewConfig creates a Config with defaults derived from baseDir.
func NewConfig(hostID, baseDir string) *Config {
	return &Config{
		HostID:  hostID,
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "db"),
		},
		Watcher: WatcherConfig{
			Ignore: []string{"*.swp", "*~", ".DS_Store"},
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
	}
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	if c.HostID == "" {
		return fmt.Errorf("host_id is required")
	}
	switch c.Database.Type {
	case "sqlite":
		if c.Database.DataDir == "" {
			return fmt.Errorf("database.data_dir is required for sqlite")
		}
	case "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for postgres")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown database type: %q", c.Database.Type)
	}
	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level: %q", c.Log.Level)
	}
	return nil
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

func writeToFile(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init writes cfg to path, refusing to overwrite an existing file.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
