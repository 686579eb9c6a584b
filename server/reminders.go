package server

import (
	"net/http"
	"time"

	"github.com/existflow/tasknest/internal/ledger"
	"github.com/labstack/echo/v4"
)

type reminderRequest struct {
	TaskID           string `json:"taskId"`
	TaskName         string `json:"taskName"`
	ReminderDateTime string `json:"reminderDateTime"`
	Replace          bool   `json:"replace"`
}

type reminderEntry struct {
	EventID      string    `json:"eventId"`
	ReminderDate time.Time `json:"reminderDate"`
}

func (s *Server) handleListReminders(c echo.Context) error {
	list, err := s.reminders.List(c.Request().Context())
	if err != nil {
		return s.fail(c, err, "Failed to retrieve reminders")
	}
	out := make(map[string]reminderEntry, len(list))
	for id, r := range list {
		out[id] = reminderEntry{EventID: r.EventID, ReminderDate: r.ReminderDate}
	}
	return c.JSON(http.StatusOK, out)
}

// handleSetReminder creates a calendar event for the task. With replace set,
// the task's previous reminder is deleted first.
func (s *Server) handleSetReminder(c echo.Context) error {
	var req reminderRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request")
	}
	if req.TaskID == "" {
		return badRequest(c, "taskId required")
	}
	at, err := time.Parse(time.RFC3339, req.ReminderDateTime)
	if err != nil {
		return badRequest(c, "reminderDateTime must be an RFC 3339 timestamp")
	}
	name := req.TaskName
	if name == "" {
		if task, err := s.tasks.Find(req.TaskID); err == nil {
			name = task.Name
		}
	}

	ctx := c.Request().Context()
	set := s.reminders.Create
	if req.Replace {
		set = s.reminders.Replace
	}
	r, err := set(ctx, req.TaskID, name, at)
	if err != nil {
		return s.fail(c, err, "Failed to set reminder")
	}
	return c.JSON(http.StatusOK, r)
}

func (s *Server) handleDeleteReminder(c echo.Context) error {
	deleted, err := s.reminders.Delete(c.Request().Context(), c.Param("taskId"), ledger.Strict)
	if err != nil {
		return s.fail(c, err, "Failed to delete reminder")
	}
	if !deleted {
		return c.JSON(http.StatusOK, message("Reminder not found or already deleted."))
	}
	return c.JSON(http.StatusOK, message("Reminder deleted successfully"))
}
