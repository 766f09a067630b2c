package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"vaultindex/internal/model"
)

// Index run tracking

const runColumns = "id, vault_id, started_at, finished_at, status, entry_count, error"

func (s *SQLStore) CreateIndexRun(ctx context.Context, vaultID string, startedAt time.Time) (*model.IndexRun, error) {
	run := &model.IndexRun{VaultID: vaultID, StartedAt: startedAt.UTC(), Status: "running"}
	err := s.queryRow(ctx,
		"INSERT INTO index_runs (vault_id, started_at, status) VALUES (?, ?, ?) RETURNING id",
		run.VaultID, run.StartedAt, run.Status).Scan(&run.ID)
	if err != nil {
		return nil, fmt.Errorf("creating index run: %w", err)
	}
	return run, nil
}

func (s *SQLStore) FinishIndexRun(ctx context.Context, id int64, finishedAt time.Time, status string, entries int64, errMsg string) error {
	_, err := s.exec(ctx,
		"UPDATE index_runs SET finished_at = ?, status = ?, entry_count = ?, error = ? WHERE id = ?",
		finishedAt.UTC(), status, entries, errMsg, id)
	if err != nil {
		return fmt.Errorf("finishing index run: %w", err)
	}
	return nil
}

// ListIndexRuns returns the most recent runs first.
func (s *SQLStore) ListIndexRuns(ctx context.Context, limit int) ([]*model.IndexRun, error) {
	rows, err := s.query(ctx, "SELECT "+runColumns+" FROM index_runs ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("listing index runs: %w", err)
	}
	defer rows.Close()

	var runs []*model.IndexRun
	for rows.Next() {
		var (
			run      model.IndexRun
			finished sql.NullTime
		)
		if err := rows.Scan(&run.ID, &run.VaultID, &run.StartedAt, &finished, &run.Status, &run.EntryCount, &run.Error); err != nil {
			return nil, fmt.Errorf("scanning index run: %w", err)
		}
		run.StartedAt = run.StartedAt.UTC()
		if finished.Valid {
			t := finished.Time.UTC()
			run.FinishedAt = &t
		}
		runs = append(runs, &run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing index runs: %w", err)
	}
	return runs, nil
}
