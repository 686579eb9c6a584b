package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/existflow/tasknest/internal/app"
	"github.com/existflow/tasknest/internal/ledger"
	"github.com/existflow/tasknest/internal/model"
	"github.com/spf13/cobra"
)

var remindCmd = &cobra.Command{
	Use:   "remind",
	Short: "Manage calendar reminders",
	Long: `Create, remove and list Google Calendar reminders for tasks.

Requires google.client_id, google.client_secret and google.refresh_token in
the config file, or the GOOGLE_* environment variables.`,
}

var remindSetCmd = &cobra.Command{
	Use:   "set [task-id] [time]",
	Short: "Create a reminder",
	Long: `Create a calendar event for the task at the given time. The calendar
alerts by email an hour before and with a popup ten minutes before.

Examples:
  tasknest remind set 3f2a 2024-02-01T09:00:00+01:00
  tasknest remind set 3f2a "2024-02-01 09:00" --replace`,
	Args: cobra.ExactArgs(2),
	RunE: runRemindSet,
}

var remindRmCmd = &cobra.Command{
	Use:     "rm [task-id]",
	Aliases: []string{"delete"},
	Short:   "Remove a task's reminder",
	Args:    cobra.ExactArgs(1),
	RunE:    runRemindRm,
}

var remindLsCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List reminders",
	Args:    cobra.NoArgs,
	RunE:    runRemindLs,
}

var remindReplace bool

func init() {
	remindSetCmd.Flags().BoolVar(&remindReplace, "replace", false, "Delete the task's existing reminder first")

	remindCmd.AddCommand(remindSetCmd)
	remindCmd.AddCommand(remindRmCmd)
	remindCmd.AddCommand(remindLsCmd)
}

func runRemindSet(cmd *cobra.Command, args []string) error {
	at, err := parseWhen(args[1])
	if err != nil {
		return err
	}

	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		id, err := resolveID(a.Tasks.Snapshot(), args[0])
		if err != nil {
			return err
		}
		task, err := a.Tasks.Find(id)
		if err != nil {
			return err
		}

		set := a.Ledger.Create
		if remindReplace {
			set = a.Ledger.Replace
		}
		r, err := set(ctx, task.ID, task.Name, at)
		if err != nil {
			return fmt.Errorf("failed to set reminder: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "⏰ Reminder for \"%s\" at %s\n", task.Name, r.ReminderDate.Local().Format("Mon Jan 2 15:04"))
		return nil
	})
}

func runRemindRm(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		// reminders can outlive their task, so fall back to the raw id
		id, err := resolveID(a.Tasks.Snapshot(), args[0])
		if err != nil {
			id = args[0]
		}

		deleted, err := a.Ledger.Delete(ctx, id, ledger.Strict)
		if err != nil {
			return fmt.Errorf("failed to delete reminder: %w", err)
		}
		if !deleted {
			fmt.Fprintln(cmd.OutOrStdout(), "Reminder not found or already deleted.")
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Reminder deleted successfully")
		return nil
	})
}

func runRemindLs(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		list, err := a.Ledger.List(ctx)
		if err != nil {
			return fmt.Errorf("failed to list reminders: %w", err)
		}
		if len(list) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No reminders.")
			return nil
		}

		names := map[string]string{}
		for _, t := range a.Tasks.Snapshot() {
			collectNames(t, names)
		}

		reminders := make([]model.Reminder, 0, len(list))
		for _, r := range list {
			reminders = append(reminders, r)
		}
		sort.Slice(reminders, func(i, j int) bool {
			return reminders[i].ReminderDate.Before(reminders[j].ReminderDate)
		})

		w := cmd.OutOrStdout()
		fmt.Fprintln(w, strings.Repeat("─", 60))
		for _, r := range reminders {
			name, ok := names[r.TaskID]
			if !ok {
				name = "(deleted task)"
			}
			when := r.ReminderDate.Local().Format("2006-01-02 15:04")
			past := ""
			if r.ReminderDate.Before(time.Now()) {
				past = " (past)"
			}
			fmt.Fprintf(w, "  %-8s  %-40s  %s%s\n", shortID(r.TaskID), name, when, past)
		}
		return nil
	})
}

func collectNames(t model.Task, names map[string]string) {
	if _, seen := names[t.ID]; !seen {
		names[t.ID] = t.Name
	}
	for _, c := range t.Children {
		collectNames(c, names)
	}
}
