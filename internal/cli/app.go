package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/existflow/tasknest/internal/app"
	"github.com/existflow/tasknest/internal/apperr"
	"github.com/existflow/tasknest/internal/model"
	"github.com/spf13/cobra"
)

// withApp opens the database, runs fn and saves the tree before returning
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	runErr := fn(ctx, a)
	if err := a.Close(ctx); err != nil {
		return errors.Join(runErr, fmt.Errorf("failed to save tasks: %w", err))
	}
	return runErr
}

// resolveID finds the task a user typed. An exact id wins; otherwise the
// reference must be the prefix of exactly one id.
func resolveID(tasks []model.Task, ref string) (string, error) {
	if ref == "" {
		return "", errors.New("task id required")
	}

	var ids []string
	for _, t := range tasks {
		ids = append(ids, t.IDs()...)
	}

	var matches []string
	for _, id := range ids {
		if id == ref {
			return id, nil
		}
		if strings.HasPrefix(id, ref) {
			matches = append(matches, id)
		}
	}

	switch len(matches) {
	case 0:
		return "", apperr.NotFound("resolve task", fmt.Errorf("no task matches %q", ref))
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%q matches %d tasks, type more of the id", ref, len(matches))
	}
}

// shortID trims an id for display
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// parseDue accepts "today", "tomorrow" or a date
func parseDue(s string, now time.Time) (model.Date, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "today":
		return model.DateOf(now), nil
	case "tomorrow":
		return model.DateOf(now.AddDate(0, 0, 1)), nil
	}
	return model.ParseDate(s)
}

// parseWhen accepts an RFC 3339 timestamp or "2006-01-02 15:04" in local time
func parseWhen(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("2006-01-02 15:04", s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: want RFC 3339 or \"YYYY-MM-DD HH:MM\"", s)
	}
	return t, nil
}
