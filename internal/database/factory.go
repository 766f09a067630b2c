package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"vaultindex/internal/config"
)

// NewStoreFromConfig opens the index store selected by the database config type.
func NewStoreFromConfig(ctx context.Context, cfg config.DatabaseConfig, hostID string) (*SQLStore, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data dir: %w", err)
		}
		return OpenSQLite(filepath.Join(cfg.DataDir, hostID+".db"))
	case "memory":
		return OpenSQLite(":memory:")
	case "postgres":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("dsn required for postgres database")
		}
		return OpenPostgres(ctx, cfg.DSN, cfg.MaxOpenConns)
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}
