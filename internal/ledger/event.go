package ledger

import (
	"fmt"
	"time"
)

// Alert is a notification the calendar sends before an event
type Alert struct {
	Method  string // "email" or "popup"
	Minutes int
}

// DefaultAlerts fire an hour and ten minutes before the reminder
var DefaultAlerts = []Alert{
	{Method: "email", Minutes: 60},
	{Method: "popup", Minutes: 10},
}

// Event is what the ledger asks the calendar to create
type Event struct {
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
	Alerts      []Alert
}

// NewEvent builds the reminder event for a task. Start and end coincide.
func NewEvent(taskName string, at time.Time) Event {
	return Event{
		Summary:     "Task Reminder: " + taskName,
		Description: fmt.Sprintf("This is a reminder for your task: \"%s\"", taskName),
		Start:       at,
		End:         at,
		Alerts:      append([]Alert(nil), DefaultAlerts...),
	}
}
