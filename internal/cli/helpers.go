package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/existflow/taskflow/internal/model"
)

func out(cmd *cobra.Command) io.Writer {
	return cmd.OutOrStdout()
}

// workspaceRef returns the workspace to scope a command to: --workspace,
// then the saved default. When required and neither is set it falls back to
// the caller's oldest workspace.
func workspaceRef(cmd *cobra.Command, required bool) (string, error) {
	ref := workspaceFlag
	if ref == "" {
		ref = api.Config().Workspace
	}
	if ref == "" && !required {
		return "", nil
	}
	w, err := resolveWorkspace(cmd.Context(), ref)
	if err != nil {
		return "", err
	}
	return w.ID, nil
}

// resolveWorkspace matches ref against workspace ids, id prefixes and names.
// An empty ref picks the oldest workspace.
func resolveWorkspace(ctx context.Context, ref string) (model.Workspace, error) {
	workspaces, err := api.Workspaces(ctx)
	if err != nil {
		return model.Workspace{}, err
	}
	if len(workspaces) == 0 {
		return model.Workspace{}, fmt.Errorf("no workspaces, create one with 'taskflow workspace new'")
	}
	if ref == "" {
		return workspaces[len(workspaces)-1], nil
	}

	var match []model.Workspace
	for _, w := range workspaces {
		if w.ID == ref {
			return w, nil
		}
		if strings.HasPrefix(w.ID, ref) || strings.EqualFold(w.Name, ref) {
			match = append(match, w)
		}
	}
	switch len(match) {
	case 0:
		return model.Workspace{}, fmt.Errorf("no workspace matches %q", ref)
	case 1:
		return match[0], nil
	default:
		return model.Workspace{}, fmt.Errorf("%q matches %d workspaces, use the id", ref, len(match))
	}
}

// resolveCategory matches ref against the workspace's categories. An empty
// ref picks the first category.
func resolveCategory(ctx context.Context, workspaceID, ref string) (model.Category, error) {
	categories, err := api.Categories(ctx, workspaceID)
	if err != nil {
		return model.Category{}, err
	}
	if len(categories) == 0 {
		return model.Category{}, fmt.Errorf("workspace has no categories, add one with 'taskflow category new'")
	}
	if ref == "" {
		return categories[0], nil
	}
	for _, c := range categories {
		if c.ID == ref || strings.EqualFold(c.Name, ref) {
			return c, nil
		}
	}
	return model.Category{}, fmt.Errorf("no category matches %q", ref)
}

// parseStatus accepts the wire form plus a few spellings people type
func parseStatus(s string) (model.Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "todo", "to-do":
		return model.StatusTodo, nil
	case "in-progress", "in_progress", "progress", "doing", "wip":
		return model.StatusInProgress, nil
	case "review":
		return model.StatusReview, nil
	case "completed", "done":
		return model.StatusCompleted, nil
	}
	return "", fmt.Errorf("unknown status %q (todo, in-progress, review, completed)", s)
}

// parsePriority accepts a priority name or P1 (urgent) to P4 (low)
func parsePriority(s string) (model.Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "urgent", "p1", "1":
		return model.PriorityUrgent, nil
	case "high", "p2", "2":
		return model.PriorityHigh, nil
	case "medium", "p3", "3":
		return model.PriorityMedium, nil
	case "low", "p4", "4":
		return model.PriorityLow, nil
	}
	return "", fmt.Errorf("unknown priority %q (low, medium, high, urgent)", s)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func statusIcon(s model.Status) string {
	switch s {
	case model.StatusInProgress:
		return "[~]"
	case model.StatusReview:
		return "[?]"
	case model.StatusCompleted:
		return "[x]"
	default:
		return "[ ]"
	}
}

func priorityBadge(p model.Priority) string {
	switch p {
	case model.PriorityUrgent:
		return "P1"
	case model.PriorityHigh:
		return "P2"
	case model.PriorityMedium:
		return "P3"
	default:
		return "P4"
	}
}

func printTaskLine(w io.Writer, t model.Task) {
	due := ""
	if t.DueDate != nil {
		due = " due " + t.DueDate.String()
	}
	tags := ""
	if len(t.Tags) > 0 {
		tags = " #" + strings.Join(t.Tags, " #")
	}
	fmt.Fprintf(w, "  %s %s  %s  %s%s%s\n", statusIcon(t.Status), shortID(t.ID), priorityBadge(t.Priority), t.Title, due, tags)
}
