package store

import (
	"context"
	"fmt"
)

// migrate runs all database migrations
func (db *DB) migrate(ctx context.Context) error {
	migrations := []string{
		migrationCreateTaskTree,
		migrationCreateReminders,
	}

	for i, m := range migrations {
		if _, err := db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	return nil
}

// The whole tree is one JSON blob in a single row (id = treeRowID).
const migrationCreateTaskTree = `
CREATE TABLE IF NOT EXISTS task_tree (
    id INTEGER PRIMARY KEY,
    data TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
`

// task_id is not a foreign key: tasks live inside the blob.
const migrationCreateReminders = `
CREATE TABLE IF NOT EXISTS reminders (
    task_id TEXT PRIMARY KEY,
    event_id TEXT NOT NULL,
    reminder_date TEXT NOT NULL
);
`
