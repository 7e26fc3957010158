package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/existflow/taskflow/internal/model"
	"github.com/existflow/taskflow/internal/service"
)

var taskCmd = &cobra.Command{
	Use:     "task",
	Aliases: []string{"t"},
	Short:   "Manage tasks",
	Long: `Create, inspect and move tasks.

Tasks are referenced by id or by a unique id prefix as shown by 'taskflow task list'.`,
}

var taskShowCmd = &cobra.Command{
	Use:   "show [task-id]",
	Short: "Show a task with its subtasks",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskShow,
}

var taskUpdateCmd = &cobra.Command{
	Use:   "update [task-id]",
	Short: "Change fields of a task",
	Long: `Change fields of a task. Only the flags given are sent.

Examples:
  taskflow task update 3f2a --priority urgent
  taskflow task update 3f2a --due 2025-12-31 --tags api,backend
  taskflow task update 3f2a --due none`,
	Args: cobra.ExactArgs(1),
	RunE: runTaskUpdate,
}

var taskMoveCmd = &cobra.Command{
	Use:   "move [task-id] [status|next|prev]",
	Short: "Move a task to another column",
	Args:  cobra.ExactArgs(2),
	RunE:  runTaskMove,
}

var (
	updTitle    string
	updDesc     string
	updStatus   string
	updPriority string
	updCategory string
	updDue      string
	updAssignee string
	updTags     []string
	updProgress int
)

func init() {
	taskCmd.AddCommand(taskAddCmd)
	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskShowCmd)
	taskCmd.AddCommand(taskUpdateCmd)
	taskCmd.AddCommand(taskMoveCmd)
	taskCmd.AddCommand(taskDoneCmd)
	taskCmd.AddCommand(taskDeleteCmd)

	f := taskUpdateCmd.Flags()
	f.StringVar(&updTitle, "title", "", "New title")
	f.StringVar(&updDesc, "desc", "", "New description")
	f.StringVarP(&updStatus, "status", "s", "", "New status")
	f.StringVarP(&updPriority, "priority", "p", "", "New priority (low, medium, high, urgent or P1-P4)")
	f.StringVarP(&updCategory, "category", "c", "", "Category id or name")
	f.StringVarP(&updDue, "due", "d", "", "Due date (YYYY-MM-DD, today, tomorrow or none)")
	f.StringVar(&updAssignee, "assignee", "", "Assignee user id, or none")
	f.StringSliceVar(&updTags, "tags", nil, "Replace the tags")
	f.IntVar(&updProgress, "progress", 0, "Progress 0-100")
}

// parseDue turns user input into the wire date form
func parseDue(s string, now time.Time) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "today":
		return now.Format(model.DateLayout), nil
	case "tomorrow":
		return now.AddDate(0, 0, 1).Format(model.DateLayout), nil
	}
	d, err := model.ParseDate(s)
	if err != nil {
		return "", err
	}
	return d.String(), nil
}

func isNone(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), "none")
}

func runTaskShow(cmd *cobra.Command, args []string) error {
	task, err := api.ResolveTask(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	w := out(cmd)
	fmt.Fprintf(w, "%s %s\n", statusIcon(task.Status), task.Title)
	fmt.Fprintf(w, "  id:        %s\n", task.ID)
	fmt.Fprintf(w, "  status:    %s\n", task.Status)
	fmt.Fprintf(w, "  priority:  %s (%s)\n", task.Priority, priorityBadge(task.Priority))
	fmt.Fprintf(w, "  progress:  %d%%\n", task.Progress)
	if task.DueDate != nil {
		fmt.Fprintf(w, "  due:       %s\n", task.DueDate)
	}
	if task.AssigneeID != nil {
		fmt.Fprintf(w, "  assignee:  %s\n", *task.AssigneeID)
	}
	if len(task.Tags) > 0 {
		fmt.Fprintf(w, "  tags:      %s\n", strings.Join(task.Tags, ", "))
	}
	fmt.Fprintf(w, "  updated:   %s\n", task.UpdatedAt.Local().Format(time.DateTime))
	if task.Description != "" {
		fmt.Fprintf(w, "\n  %s\n", task.Description)
	}
	if len(task.Subtasks) > 0 {
		fmt.Fprintln(w)
		for _, st := range task.Subtasks {
			mark := "[ ]"
			if st.Completed {
				mark = "[x]"
			}
			fmt.Fprintf(w, "  %s %s\n", mark, st.Title)
		}
	}
	return nil
}

func runTaskUpdate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	task, err := api.ResolveTask(ctx, args[0])
	if err != nil {
		return err
	}

	var in service.UpdateTaskInput
	changed := cmd.Flags().Changed
	if changed("title") {
		in.Title = model.Some(updTitle)
	}
	if changed("desc") {
		in.Description = model.Some(updDesc)
	}
	if changed("status") {
		s, err := parseStatus(updStatus)
		if err != nil {
			return err
		}
		in.Status = model.Some(s)
	}
	if changed("priority") {
		p, err := parsePriority(updPriority)
		if err != nil {
			return err
		}
		in.Priority = model.Some(p)
	}
	if changed("category") {
		c, err := resolveCategory(ctx, task.WorkspaceID, updCategory)
		if err != nil {
			return err
		}
		in.CategoryID = model.Some(c.ID)
	}
	if changed("due") {
		if isNone(updDue) {
			in.DueDate = model.Null[string]()
		} else {
			due, err := parseDue(updDue, time.Now())
			if err != nil {
				return err
			}
			in.DueDate = model.Some(due)
		}
	}
	if changed("assignee") {
		if isNone(updAssignee) {
			in.AssigneeID = model.Null[string]()
		} else {
			in.AssigneeID = model.Some(updAssignee)
		}
	}
	if changed("tags") {
		in.Tags = model.Some(updTags)
	}
	if changed("progress") {
		in.Progress = model.Some(updProgress)
	}

	updated, err := api.UpdateTask(ctx, task.ID, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(out(cmd), "✓ Updated: %q\n", updated.Title)
	return nil
}

func runTaskMove(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	task, err := api.ResolveTask(ctx, args[0])
	if err != nil {
		return err
	}

	var target model.Status
	switch strings.ToLower(args[1]) {
	case "next":
		target = task.Status.Next()
	case "prev":
		target = task.Status.Prev()
	default:
		target, err = parseStatus(args[1])
		if err != nil {
			return err
		}
	}
	if target == task.Status {
		fmt.Fprintf(out(cmd), "%q is already %s\n", task.Title, task.Status)
		return nil
	}

	moved, err := api.MoveTask(ctx, task.ID, target)
	if err != nil {
		return err
	}
	fmt.Fprintf(out(cmd), "✓ Moved: %q → %s\n", moved.Title, moved.Status)
	return nil
}
