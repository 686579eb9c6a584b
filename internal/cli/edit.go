package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/existflow/tasknest/internal/app"
	"github.com/existflow/tasknest/internal/model"
	"github.com/spf13/cobra"
)

var editCmd = &cobra.Command{
	Use:   "edit [task-id]",
	Short: "Change a task's fields",
	Long: `Change the name, priority, due date or tags of a task. Fields that are
not given stay as they are; subtasks are never touched.

Examples:
  tasknest edit 3f2a --name "Buy milk"
  tasknest edit 3f2a --priority high --due 2024-02-01
  tasknest edit 3f2a --clear-due --tag home --tag weekend`,
	Args: cobra.ExactArgs(1),
	RunE: runEdit,
}

var (
	editName     string
	editPriority string
	editDue      string
	editClearDue bool
	editTags     []string
)

func init() {
	editCmd.Flags().StringVarP(&editName, "name", "n", "", "New name")
	editCmd.Flags().StringVarP(&editPriority, "priority", "p", "", "Priority (low, medium, high)")
	editCmd.Flags().StringVarP(&editDue, "due", "d", "", "Due date")
	editCmd.Flags().BoolVar(&editClearDue, "clear-due", false, "Remove the due date")
	editCmd.Flags().StringSliceVarP(&editTags, "tag", "t", nil, "Replace tags, repeatable")
	editCmd.MarkFlagsMutuallyExclusive("due", "clear-due")
}

func runEdit(cmd *cobra.Command, args []string) error {
	var patch model.Patch
	flags := cmd.Flags()

	if flags.Changed("name") {
		patch.Name = &editName
	}
	if flags.Changed("priority") {
		p, err := model.ParsePriority(editPriority)
		if err != nil {
			return err
		}
		patch.Priority = &p
	}
	if flags.Changed("due") {
		d, err := parseDue(editDue, time.Now())
		if err != nil {
			return err
		}
		patch.Due = &d
	}
	if editClearDue {
		patch.Due = &model.Date{}
	}
	if flags.Changed("tag") {
		tags := editTags
		patch.Tags = &tags
	}
	if patch.Empty() {
		return errors.New("nothing to change, see --help")
	}

	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		id, err := resolveID(a.Tasks.Snapshot(), args[0])
		if err != nil {
			return err
		}
		task, err := a.Tasks.Update(id, patch)
		if err != nil {
			return fmt.Errorf("failed to update task: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Updated: \"%s\"\n", task.Name)
		return nil
	})
}

var statusCmd = &cobra.Command{
	Use:   "status [task-id] [status]",
	Short: "Set a task's status",
	Long: `Set the status of a task.

Statuses: not-started, in-progress, done, cancelled, archived

Examples:
  tasknest status 3f2a in-progress`,
	Args: cobra.ExactArgs(2),
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	status, err := model.ParseStatus(args[1])
	if err != nil {
		return err
	}

	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		id, err := resolveID(a.Tasks.Snapshot(), args[0])
		if err != nil {
			return err
		}
		task, err := a.Tasks.SetStatus(id, status)
		if err != nil {
			return fmt.Errorf("failed to update task: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ \"%s\" is now %s\n", task.Name, task.Status)
		return nil
	})
}

var doneCmd = &cobra.Command{
	Use:   "done [task-id]",
	Short: "Toggle a task between done and in progress",
	Long: `Mark a task as done. Running it on a done task reopens it as in progress.

Examples:
  tasknest done 3f2a`,
	Args: cobra.ExactArgs(1),
	RunE: runDone,
}

func runDone(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		id, err := resolveID(a.Tasks.Snapshot(), args[0])
		if err != nil {
			return err
		}
		task, err := a.Tasks.ToggleDone(id)
		if err != nil {
			return fmt.Errorf("failed to update task: %w", err)
		}

		if task.Status == model.StatusDone {
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Completed: \"%s\"\n", task.Name)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "○ Reopened: \"%s\"\n", task.Name)
		}
		return nil
	})
}

var expandCmd = &cobra.Command{
	Use:   "expand [task-id]",
	Short: "Expand or collapse a task's subtasks",
	Args:  cobra.ExactArgs(1),
	RunE:  runExpand,
}

func runExpand(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		id, err := resolveID(a.Tasks.Snapshot(), args[0])
		if err != nil {
			return err
		}
		task, err := a.Tasks.ToggleExpanded(id)
		if err != nil {
			return fmt.Errorf("failed to update task: %w", err)
		}

		state := "collapsed"
		if task.Expanded {
			state = "expanded"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\"%s\" %s\n", task.Name, state)
		return nil
	})
}
