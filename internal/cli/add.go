package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/existflow/tasknest/internal/app"
	"github.com/existflow/tasknest/internal/model"
	"github.com/spf13/cobra"
)

var addCmd = &cobra.Command{
	Use:   "add [name]",
	Short: "Add a new task",
	Long: `Add a task at the top level or under a parent task.

Examples:
  tasknest add "Buy groceries"
  tasknest add Write report --priority high --due tomorrow
  tasknest add "Draft intro" --parent 3f2a --tag writing`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAdd,
}

var (
	addParent   string
	addStatus   string
	addPriority string
	addDue      string
	addTags     []string
)

func init() {
	addCmd.Flags().StringVarP(&addParent, "parent", "P", "", "Parent task id or id prefix")
	addCmd.Flags().StringVarP(&addStatus, "status", "s", "", "Status (not-started, in-progress, done, cancelled, archived)")
	addCmd.Flags().StringVarP(&addPriority, "priority", "p", "", "Priority (low, medium, high)")
	addCmd.Flags().StringVarP(&addDue, "due", "d", "", "Due date (e.g., 'tomorrow', '2024-01-15')")
	addCmd.Flags().StringSliceVarP(&addTags, "tag", "t", nil, "Tag, repeatable")
}

func runAdd(cmd *cobra.Command, args []string) error {
	fields := model.Fields{Name: strings.Join(args, " "), Tags: addTags}

	if addStatus != "" {
		s, err := model.ParseStatus(addStatus)
		if err != nil {
			return err
		}
		fields.Status = s
	}
	if addPriority != "" {
		p, err := model.ParsePriority(addPriority)
		if err != nil {
			return err
		}
		fields.Priority = p
	}
	if addDue != "" {
		d, err := parseDue(addDue, time.Now())
		if err != nil {
			return err
		}
		fields.Due = d
	}

	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		parentID := ""
		if addParent != "" {
			id, err := resolveID(a.Tasks.Snapshot(), addParent)
			if err != nil {
				return err
			}
			parentID = id
		}

		task, err := a.Tasks.Add(parentID, fields)
		if err != nil {
			return fmt.Errorf("failed to create task: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "✓ Added: \"%s\" (%s, %s)\n", task.Name, shortID(task.ID), task.Priority)
		return nil
	})
}
