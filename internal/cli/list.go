package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/existflow/tasknest/internal/app"
	"github.com/existflow/tasknest/internal/model"
	"github.com/existflow/tasknest/internal/tree"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List tasks",
	Long: `List the task tree. Sorting applies to every level separately.

Examples:
  tasknest list
  tasknest list --sort status --then priority
  tasknest list --sort due --collapsed`,
	Args: cobra.NoArgs,
	RunE: runList,
}

var (
	listSort      string
	listThen      string
	listCollapsed bool
)

func init() {
	listCmd.Flags().StringVar(&listSort, "sort", "", "Sort by status, priority, name or due")
	listCmd.Flags().StringVar(&listThen, "then", "", "Secondary sort key")
	listCmd.Flags().BoolVar(&listCollapsed, "collapsed", false, "Hide subtasks of collapsed tasks")
}

func runList(cmd *cobra.Command, args []string) error {
	primary, err := tree.ParseSortKey(listSort)
	if err != nil {
		return err
	}
	secondary, err := tree.ParseSortKey(listThen)
	if err != nil {
		return err
	}

	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		tasks := a.Tasks.Sorted(tree.SortConfig{Primary: primary, Secondary: secondary})
		if len(tasks) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No tasks found. Add one with: tasknest add \"Your task\"")
			return nil
		}

		reminders, err := a.Ledger.List(ctx)
		if err != nil {
			return fmt.Errorf("failed to list reminders: %w", err)
		}

		r := listRenderer{
			w:         cmd.OutOrStdout(),
			reminders: reminders,
			now:       time.Now(),
			collapsed: listCollapsed,
		}
		r.render(tasks)
		return nil
	})
}

type listRenderer struct {
	w         io.Writer
	reminders map[string]model.Reminder
	now       time.Time
	collapsed bool // honour the expanded flag
}

func (r listRenderer) render(tasks []model.Task) {
	open := 0
	for _, t := range tasks {
		open += countOpen(t)
	}
	fmt.Fprintf(r.w, "\n%d tasks, %d open\n", model.Count(tasks), open)
	fmt.Fprintln(r.w, strings.Repeat("─", 60))
	for _, t := range tasks {
		r.renderTask(t, 0)
	}
	fmt.Fprintln(r.w)
}

func (r listRenderer) renderTask(t model.Task, depth int) {
	marker := " "
	if len(t.Children) > 0 {
		marker = "▾"
		if !t.Expanded {
			marker = "▸"
		}
	}

	name := t.Name
	if t.Status == model.StatusDone || t.Status == model.StatusCancelled {
		name = doneStyle.Render(name)
	}

	icon, ok := statusIcons[t.Status]
	if !ok {
		icon = "[?]"
	}

	var extra []string
	extra = append(extra, styleFor(priorityStyles, t.Priority).Render(string(t.Priority)))
	if !t.Due.IsZero() {
		due := t.Due.Time().Format("Jan 2")
		if t.IsOverdue(r.now) {
			extra = append(extra, overdueStyle.Render("! "+due))
		} else {
			extra = append(extra, dueStyle.Render(due))
		}
	}
	for _, tag := range t.Tags {
		extra = append(extra, tagStyle.Render("#"+tag))
	}
	if _, ok := r.reminders[t.ID]; ok {
		extra = append(extra, reminderMark)
	}

	fmt.Fprintf(r.w, "%s%s %s  %s  %s  %s\n",
		strings.Repeat("  ", depth),
		marker,
		styleFor(statusStyles, t.Status).Render(icon),
		idStyle.Render(shortID(t.ID)),
		name,
		strings.Join(extra, " "))

	if r.collapsed && !t.Expanded {
		return
	}
	for _, c := range t.Children {
		r.renderTask(c, depth+1)
	}
}

func countOpen(t model.Task) int {
	n := 0
	if t.Status == model.StatusNotStarted || t.Status == model.StatusInProgress {
		n = 1
	}
	for _, c := range t.Children {
		n += countOpen(c)
	}
	return n
}
