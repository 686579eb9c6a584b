package model

import "time"

// Reminder links a task to the calendar event created for it
type Reminder struct {
	TaskID       string    `json:"taskId"`
	EventID      string    `json:"eventId"`
	ReminderDate time.Time `json:"reminderDate"`
}
