package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var taskDeleteCmd = &cobra.Command{
	Use:     "rm [task-id]",
	Aliases: []string{"delete"},
	Short:   "Delete a task",
	Args:    cobra.ExactArgs(1),
	RunE:    runDelete,
}

func runDelete(cmd *cobra.Command, args []string) error {
	task, err := api.ResolveTask(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if err := api.DeleteTask(cmd.Context(), task.ID); err != nil {
		return err
	}
	fmt.Fprintf(out(cmd), "✓ Deleted: %q\n", task.Title)
	return nil
}
