package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"vaultindex/internal/index"
	"vaultindex/internal/model"
)

// deleteChunk bounds the number of bound parameters per DELETE.
const deleteChunk = 500

const recordColumns = "id, vault_id, path_id, name, entry_kind, parent_id, created_at, size"

// queries implements index.RecordStore against either the pool or a transaction.
type queries struct {
	db DBTX
	d  dialect
}

func (q *queries) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return q.db.ExecContext(ctx, q.d.rebind(query), args...)
}

func (q *queries) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return q.db.QueryContext(ctx, q.d.rebind(query), args...)
}

func (q *queries) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return q.db.QueryRowContext(ctx, q.d.rebind(query), args...)
}

func (q *queries) DeleteAll(ctx context.Context, vaultID string) (int64, error) {
	res, err := q.exec(ctx, "DELETE FROM index_records WHERE vault_id = ?", vaultID)
	if err != nil {
		return 0, fmt.Errorf("deleting records of vault %s: %w", vaultID, err)
	}
	return res.RowsAffected()
}

func (q *queries) Insert(ctx context.Context, rec *model.Record) error {
	_, err := q.exec(ctx,
		"INSERT INTO index_records ("+recordColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		recordArgs(rec)...)
	if err != nil {
		return fmt.Errorf("inserting record %s: %w", rec.PathID, err)
	}
	return nil
}

func (q *queries) InsertIfAbsent(ctx context.Context, rec *model.Record) (bool, error) {
	res, err := q.exec(ctx,
		"INSERT INTO index_records ("+recordColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?) "+
			"ON CONFLICT (vault_id, path_id) DO NOTHING",
		recordArgs(rec)...)
	if err != nil {
		return false, fmt.Errorf("inserting record %s: %w", rec.PathID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("inserting record %s: %w", rec.PathID, err)
	}
	return n == 1, nil
}

// DeleteByPaths relies on the parent_id foreign key cascading to descendants.
func (q *queries) DeleteByPaths(ctx context.Context, vaultID string, pathIDs []string) (int64, error) {
	var total int64
	for start := 0; start < len(pathIDs); start += deleteChunk {
		chunk := pathIDs[start:min(start+deleteChunk, len(pathIDs))]

		args := make([]any, 0, len(chunk)+1)
		args = append(args, vaultID)
		for _, p := range chunk {
			args = append(args, p)
		}

		res, err := q.exec(ctx,
			"DELETE FROM index_records WHERE vault_id = ? AND path_id IN ("+placeholders(len(chunk))+")",
			args...)
		if err != nil {
			return total, fmt.Errorf("deleting records by path: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("deleting records by path: %w", err)
		}
		total += n
	}
	return total, nil
}

func (q *queries) FindByPath(ctx context.Context, vaultID string, pathID string) (*model.Record, error) {
	row := q.queryRow(ctx,
		"SELECT "+recordColumns+" FROM index_records WHERE vault_id = ? AND path_id = ?",
		vaultID, pathID)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding record by path: %w", err)
	}
	return rec, nil
}

func (q *queries) List(ctx context.Context, lq model.ListQuery) ([]*model.Record, error) {
	var (
		where = []string{"vault_id = ?"}
		args  = []any{lq.VaultID}
	)
	switch {
	case lq.ParentID != nil:
		where = append(where, "parent_id = ?")
		args = append(args, *lq.ParentID)
	case lq.Search == "":
		where = append(where, "parent_id IS NULL")
	}
	if lq.Search != "" {
		where = append(where, "name "+q.d.likeOp+` ? ESCAPE '\'`)
		args = append(args, likePattern(lq.Search))
	}
	if lq.AfterID != "" {
		where = append(where, "id > ?")
		args = append(args, lq.AfterID)
	}
	limit := lq.Limit
	if limit <= 0 {
		limit = index.DefaultListLimit
	}
	args = append(args, limit)

	rows, err := q.query(ctx,
		"SELECT "+recordColumns+" FROM index_records WHERE "+strings.Join(where, " AND ")+" ORDER BY id LIMIT ?",
		args...)
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	defer rows.Close()

	var records []*model.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	return records, nil
}

func recordArgs(rec *model.Record) []any {
	var (
		parent  any
		created any
		size    any
	)
	if rec.ParentID != nil {
		parent = *rec.ParentID
	}
	if rec.CreatedAt != nil {
		created = rec.CreatedAt.UTC()
	}
	if rec.Size != nil {
		size = *rec.Size
	}
	return []any{rec.ID, rec.VaultID, rec.PathID, rec.Name, string(rec.Kind), parent, created, size}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*model.Record, error) {
	var (
		rec     model.Record
		kind    string
		parent  sql.NullString
		created sql.NullTime
		size    sql.NullInt64
	)
	if err := s.Scan(&rec.ID, &rec.VaultID, &rec.PathID, &rec.Name, &kind, &parent, &created, &size); err != nil {
		return nil, err
	}
	rec.Kind = model.EntryKind(kind)
	if parent.Valid {
		rec.ParentID = &parent.String
	}
	if created.Valid {
		t := created.Time.UTC()
		rec.CreatedAt = &t
	}
	if size.Valid {
		rec.Size = &size.Int64
	}
	return &rec, nil
}
