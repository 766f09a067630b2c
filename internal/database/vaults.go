package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"vaultindex/internal/model"
)

const vaultColumns = "id, name, provider, data, created_at"

func (s *SQLStore) CreateVault(ctx context.Context, v *model.Vault) error {
	data := string(v.Data)
	if data == "" {
		data = "{}"
	}
	_, err := s.exec(ctx,
		"INSERT INTO vaults ("+vaultColumns+") VALUES (?, ?, ?, ?, ?)",
		v.ID, v.Name, v.Provider, data, v.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("creating vault %s: %w", v.Name, err)
	}
	return nil
}

func (s *SQLStore) FindVault(ctx context.Context, id string) (*model.Vault, error) {
	return s.findVault(ctx, "id", id)
}

func (s *SQLStore) FindVaultByName(ctx context.Context, name string) (*model.Vault, error) {
	return s.findVault(ctx, "name", name)
}

// ResolveVault accepts a vault ID or name. Returns ErrVaultNotFound when neither matches.
func (s *SQLStore) ResolveVault(ctx context.Context, idOrName string) (*model.Vault, error) {
	v, err := s.FindVault(ctx, idOrName)
	if err != nil {
		return nil, err
	}
	if v == nil {
		v, err = s.FindVaultByName(ctx, idOrName)
		if err != nil {
			return nil, err
		}
	}
	if v == nil {
		return nil, fmt.Errorf("%w: %s", ErrVaultNotFound, idOrName)
	}
	return v, nil
}

func (s *SQLStore) findVault(ctx context.Context, column, value string) (*model.Vault, error) {
	row := s.queryRow(ctx, "SELECT "+vaultColumns+" FROM vaults WHERE "+column+" = ?", value)
	v, err := scanVault(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding vault by %s: %w", column, err)
	}
	return v, nil
}

func (s *SQLStore) ListVaults(ctx context.Context) ([]*model.Vault, error) {
	return s.listVaults(ctx, "SELECT "+vaultColumns+" FROM vaults ORDER BY name")
}

func (s *SQLStore) ListVaultsByProvider(ctx context.Context, provider string) ([]*model.Vault, error) {
	return s.listVaults(ctx, "SELECT "+vaultColumns+" FROM vaults WHERE provider = ? ORDER BY name", provider)
}

func (s *SQLStore) listVaults(ctx context.Context, query string, args ...any) ([]*model.Vault, error) {
	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing vaults: %w", err)
	}
	defer rows.Close()

	var vaults []*model.Vault
	for rows.Next() {
		v, err := scanVault(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning vault: %w", err)
		}
		vaults = append(vaults, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing vaults: %w", err)
	}
	return vaults, nil
}

func scanVault(s scanner) (*model.Vault, error) {
	var (
		v    model.Vault
		data []byte
	)
	if err := s.Scan(&v.ID, &v.Name, &v.Provider, &data, &v.CreatedAt); err != nil {
		return nil, err
	}
	v.Data = append([]byte(nil), data...)
	v.CreatedAt = v.CreatedAt.UTC()
	return &v, nil
}
