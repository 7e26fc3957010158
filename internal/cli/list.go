package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/existflow/taskflow/internal/model"
)

var taskListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List tasks grouped by status",
	Long: `List tasks grouped by status.

Without --workspace or a saved default, tasks of every workspace you belong to are shown.

Examples:
  taskflow task list
  taskflow task list --status review
  taskflow task list --all`,
	RunE: runList,
}

var (
	listStatus string
	listAll    bool
)

func init() {
	taskListCmd.Flags().StringVarP(&listStatus, "status", "s", "", "Only show this status")
	taskListCmd.Flags().BoolVarP(&listAll, "all", "a", false, "Include completed tasks")
}

func runList(cmd *cobra.Command, args []string) error {
	wsID, err := workspaceRef(cmd, false)
	if err != nil {
		return err
	}
	tasks, err := api.Tasks(cmd.Context(), wsID)
	if err != nil {
		return err
	}

	statuses := model.Statuses
	if listStatus != "" {
		s, err := parseStatus(listStatus)
		if err != nil {
			return err
		}
		statuses = []model.Status{s}
	} else if !listAll {
		statuses = statuses[:len(statuses)-1]
	}

	w := out(cmd)
	if api.Offline() {
		if at, ok := api.TasksFetchedAt(wsID); ok {
			fmt.Fprintf(w, "(offline, cached at %s)\n", at.Local().Format(time.DateTime))
		}
	}

	shown := 0
	for _, s := range statuses {
		var group []model.Task
		for _, t := range tasks {
			if t.Status == s {
				group = append(group, t)
			}
		}
		if len(group) == 0 {
			continue
		}
		fmt.Fprintf(w, "%s (%d)\n", s, len(group))
		for _, t := range group {
			printTaskLine(w, t)
		}
		shown += len(group)
	}
	if shown == 0 {
		fmt.Fprintln(w, "No tasks.")
	}
	return nil
}
