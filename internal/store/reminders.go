package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/existflow/tasknest/internal/model"
)

// UpsertReminder stores r, replacing any reminder for the same task
func (db *DB) UpsertReminder(ctx context.Context, r model.Reminder) error {
	_, err := db.ExecContext(ctx, db.rebind(`
		INSERT INTO reminders (task_id, event_id, reminder_date)
		VALUES (?, ?, ?)
		ON CONFLICT (task_id) DO UPDATE SET
			event_id = excluded.event_id,
			reminder_date = excluded.reminder_date`),
		r.TaskID, r.EventID, r.ReminderDate.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upsert reminder %s: %w", r.TaskID, err)
	}
	return nil
}

// GetReminder returns the reminder for taskID. ok is false if there is none.
func (db *DB) GetReminder(ctx context.Context, taskID string) (model.Reminder, bool, error) {
	var eventID, date string
	err := db.QueryRowContext(ctx, db.rebind(`
		SELECT event_id, reminder_date FROM reminders WHERE task_id = ?`),
		taskID,
	).Scan(&eventID, &date)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Reminder{}, false, nil
	}
	if err != nil {
		return model.Reminder{}, false, fmt.Errorf("get reminder %s: %w", taskID, err)
	}

	r, err := newReminder(taskID, eventID, date)
	if err != nil {
		return model.Reminder{}, false, err
	}
	return r, true, nil
}

// DeleteReminder removes the reminder for taskID. Missing rows are not an error.
func (db *DB) DeleteReminder(ctx context.Context, taskID string) error {
	if _, err := db.ExecContext(ctx, db.rebind(`DELETE FROM reminders WHERE task_id = ?`), taskID); err != nil {
		return fmt.Errorf("delete reminder %s: %w", taskID, err)
	}
	return nil
}

// ListReminders returns every stored reminder ordered by task id
func (db *DB) ListReminders(ctx context.Context) ([]model.Reminder, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT task_id, event_id, reminder_date FROM reminders ORDER BY task_id`)
	if err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []model.Reminder
	for rows.Next() {
		var taskID string
		var eventID, date sql.NullString
		if err := rows.Scan(&taskID, &eventID, &date); err != nil {
			return nil, fmt.Errorf("scan reminder: %w", err)
		}
		// a partial row is unusable
		if taskID == "" || eventID.String == "" || date.String == "" {
			continue
		}
		r, err := newReminder(taskID, eventID.String, date.String)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}
	return out, nil
}

func newReminder(taskID, eventID, date string) (model.Reminder, error) {
	at, err := time.Parse(time.RFC3339, date)
	if err != nil {
		return model.Reminder{}, fmt.Errorf("reminder %s has invalid date %q: %w", taskID, date, err)
	}
	return model.Reminder{TaskID: taskID, EventID: eventID, ReminderDate: at}, nil
}
