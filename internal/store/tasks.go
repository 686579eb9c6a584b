package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const treeRowID = 1

// LoadTree returns the stored tree blob. ok is false when nothing was saved yet.
func (db *DB) LoadTree(ctx context.Context) (data []byte, ok bool, err error) {
	var s string
	err = db.QueryRowContext(ctx, db.rebind(`SELECT data FROM task_tree WHERE id = ?`), treeRowID).Scan(&s)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load task tree: %w", err)
	}
	return []byte(s), true, nil
}

// SaveTree replaces the stored tree blob
func (db *DB) SaveTree(ctx context.Context, data []byte) error {
	_, err := db.ExecContext(ctx, db.rebind(`
		INSERT INTO task_tree (id, data, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at`),
		treeRowID, string(data), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("save task tree: %w", err)
	}
	return nil
}
