package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/existflow/taskflow/internal/model"
)

var taskDoneCmd = &cobra.Command{
	Use:   "done [task-id]",
	Short: "Mark a task as completed",
	Long: `Mark a task as completed.

Examples:
  taskflow task done 3f2a
  taskflow task done 3f2a --undo`,
	Args: cobra.ExactArgs(1),
	RunE: runDone,
}

var doneUndo bool

func init() {
	taskDoneCmd.Flags().BoolVar(&doneUndo, "undo", false, "Move the task back to todo")
}

func runDone(cmd *cobra.Command, args []string) error {
	task, err := api.ResolveTask(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	target := model.StatusCompleted
	if doneUndo {
		target = model.StatusTodo
	}
	if _, err := api.MoveTask(cmd.Context(), task.ID, target); err != nil {
		return err
	}

	if doneUndo {
		fmt.Fprintf(out(cmd), "○ Reopened: %q\n", task.Title)
	} else {
		fmt.Fprintf(out(cmd), "✓ Completed: %q\n", task.Title)
	}
	return nil
}
