package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/existflow/tasknest/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestTreeBlobRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_, ok, err := db.LoadTree(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "empty store has no tree")

	require.NoError(t, db.SaveTree(ctx, []byte(`[{"id":"1"}]`)))
	require.NoError(t, db.SaveTree(ctx, []byte(`[{"id":"2"}]`)))

	data, ok, err := db.LoadTree(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `[{"id":"2"}]`, string(data))

	var rows int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM task_tree`).Scan(&rows))
	assert.Equal(t, 1, rows)
}

func TestReminderUpsertKeepsOnePerTask(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	at := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, db.UpsertReminder(ctx, model.Reminder{TaskID: "t1", EventID: "e1", ReminderDate: at}))
	require.NoError(t, db.UpsertReminder(ctx, model.Reminder{TaskID: "t1", EventID: "e2", ReminderDate: at.Add(time.Hour)}))

	list, err := db.ListReminders(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "e2", list[0].EventID)
	assert.True(t, at.Add(time.Hour).Equal(list[0].ReminderDate))

	got, ok, err := db.GetReminder(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "e2", got.EventID)
}

func TestReminderDelete(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.UpsertReminder(ctx, model.Reminder{TaskID: "t1", EventID: "e1", ReminderDate: time.Now()}))
	require.NoError(t, db.DeleteReminder(ctx, "t1"))
	require.NoError(t, db.DeleteReminder(ctx, "t1"), "deleting twice is fine")

	_, ok, err := db.GetReminder(ctx, "t1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOpenFileCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "tasks.db")

	db, err := Open(context.Background(), "sqlite://"+path)
	require.NoError(t, err)
	require.NoError(t, db.SaveTree(context.Background(), []byte(`[]`)))
	require.NoError(t, db.Close())

	db, err = Open(context.Background(), path)
	require.NoError(t, err)
	defer db.Close()
	_, ok, err := db.LoadTree(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRebind(t *testing.T) {
	pg := &DB{dialect: Postgres}
	assert.Equal(t, "SELECT * FROM x WHERE a = $1 AND b = $2", pg.rebind("SELECT * FROM x WHERE a = ? AND b = ?"))

	lite := &DB{dialect: SQLite}
	assert.Equal(t, "a = ?", lite.rebind("a = ?"))

	d, dsn := parseURL("postgresql://u@h/db")
	assert.Equal(t, Postgres, d)
	assert.Equal(t, "postgresql://u@h/db", dsn)
}

func TestListRemindersSkipsPartialRows(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_, err := db.Exec(`INSERT INTO reminders (task_id, event_id, reminder_date) VALUES ('t1', '', '2025-01-01T00:00:00Z')`)
	require.NoError(t, err)
	require.NoError(t, db.UpsertReminder(ctx, model.Reminder{TaskID: "t2", EventID: "e2", ReminderDate: time.Now()}))

	list, err := db.ListReminders(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "t2", list[0].TaskID)
}
