package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/existflow/taskflow/internal/service"
)

var taskAddCmd = &cobra.Command{
	Use:   "add [title]",
	Short: "Add a new task",
	Long: `Add a new task to a workspace.

Examples:
  taskflow task add "Buy groceries"
  taskflow task add "Fix login" -p urgent -c Bugs
  taskflow task add "Release notes" --due tomorrow --tag docs --subtask "Draft" --subtask "Review"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAdd,
}

var (
	addCategory string
	addPriority string
	addStatus   string
	addDue      string
	addAssignee string
	addDesc     string
	addTags     []string
	addSubtasks []string
)

func init() {
	f := taskAddCmd.Flags()
	f.StringVarP(&addCategory, "category", "c", "", "Category id or name (default: the first category)")
	f.StringVarP(&addPriority, "priority", "p", "", "Priority (low, medium, high, urgent or P1-P4)")
	f.StringVarP(&addStatus, "status", "s", "", "Initial status (default: todo)")
	f.StringVarP(&addDue, "due", "d", "", "Due date (YYYY-MM-DD, today or tomorrow)")
	f.StringVar(&addAssignee, "assignee", "", "Assignee user id")
	f.StringVar(&addDesc, "desc", "", "Description")
	f.StringArrayVar(&addTags, "tag", nil, "Tag (repeatable)")
	f.StringArrayVar(&addSubtasks, "subtask", nil, "Subtask title (repeatable)")
}

func runAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	wsID, err := workspaceRef(cmd, true)
	if err != nil {
		return err
	}
	category, err := resolveCategory(ctx, wsID, addCategory)
	if err != nil {
		return err
	}

	in := service.CreateTaskInput{
		WorkspaceID: wsID,
		Title:       strings.Join(args, " "),
		Description: addDesc,
		CategoryID:  category.ID,
		Tags:        addTags,
	}
	if addPriority != "" {
		if in.Priority, err = parsePriority(addPriority); err != nil {
			return err
		}
	}
	if addStatus != "" {
		if in.Status, err = parseStatus(addStatus); err != nil {
			return err
		}
	}
	if addDue != "" {
		due, err := parseDue(addDue, time.Now())
		if err != nil {
			return err
		}
		in.DueDate = &due
	}
	if addAssignee != "" {
		in.AssigneeID = &addAssignee
	}
	for _, title := range addSubtasks {
		in.Subtasks = append(in.Subtasks, service.SubtaskInput{Title: title})
	}

	task, err := api.CreateTask(ctx, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(out(cmd), "✓ Added: %q to %s %s (%s)\n", task.Title, category.Icon, category.Name, shortID(task.ID))
	return nil
}
