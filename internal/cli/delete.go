package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/existflow/tasknest/internal/app"
	"github.com/existflow/tasknest/internal/model"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var deleteCmd = &cobra.Command{
	Use:     "delete [task-id]",
	Aliases: []string{"rm"},
	Short:   "Delete a task and its subtasks",
	Long: `Delete a task together with all of its subtasks. Their reminders are
removed too; if the calendar cannot be reached the events are left behind.

Asks for confirmation when run in a terminal.

Examples:
  tasknest delete 3f2a
  tasknest rm 3f2a --yes`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

var deleteYes bool

func init() {
	deleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "Do not ask for confirmation")
}

func runDelete(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		id, err := resolveID(a.Tasks.Snapshot(), args[0])
		if err != nil {
			return err
		}
		task, err := a.Tasks.Find(id)
		if err != nil {
			return err
		}

		if !deleteYes && term.IsTerminal(int(os.Stdin.Fd())) {
			n := model.Count([]model.Task{task})
			fmt.Fprintf(cmd.OutOrStdout(), "About to delete: \"%s\" (ID: %s)", task.Name, shortID(task.ID))
			if n > 1 {
				fmt.Fprintf(cmd.OutOrStdout(), " and %d subtasks", n-1)
			}
			fmt.Fprint(cmd.OutOrStdout(), "\nAre you sure? [y/N]: ")

			confirm, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			confirm = strings.TrimSpace(confirm)
			if confirm != "y" && confirm != "Y" {
				fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
				return nil
			}
		}

		removed, err := a.Tasks.Delete(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to delete task: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "🗑️  Deleted: \"%s\" (%d tasks)\n", removed.Name, model.Count([]model.Task{removed}))
		return nil
	})
}
