package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/existflow/taskflow/internal/model"
	"github.com/existflow/taskflow/internal/service"
)

var workspaceCmd = &cobra.Command{
	Use:     "workspace",
	Aliases: []string{"ws"},
	Short:   "Manage workspaces",
	Long: `List, create and share workspaces.

Examples:
  taskflow workspace list
  taskflow workspace new "Launch" --color "#FF6B6B"
  taskflow workspace use Launch
  taskflow workspace add-member Launch bob@example.com --role viewer`,
}

var workspaceListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List your workspaces",
	RunE:    runWorkspaceList,
}

var workspaceNewCmd = &cobra.Command{
	Use:   "new [name]",
	Short: "Create a workspace",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runWorkspaceNew,
}

var workspaceUseCmd = &cobra.Command{
	Use:   "use [workspace]",
	Short: "Set the default workspace, or clear it with no argument",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runWorkspaceUse,
}

var workspaceAddMemberCmd = &cobra.Command{
	Use:   "add-member [workspace] [email]",
	Short: "Add a user to a workspace (workspace admins only)",
	Args:  cobra.ExactArgs(2),
	RunE:  runWorkspaceAddMember,
}

var (
	workspaceDesc  string
	workspaceColor string
	memberRole     string
)

func init() {
	workspaceCmd.AddCommand(workspaceListCmd)
	workspaceCmd.AddCommand(workspaceNewCmd)
	workspaceCmd.AddCommand(workspaceUseCmd)
	workspaceCmd.AddCommand(workspaceAddMemberCmd)

	workspaceNewCmd.Flags().StringVarP(&workspaceDesc, "desc", "D", "", "Description")
	workspaceNewCmd.Flags().StringVar(&workspaceColor, "color", "", "Color, e.g. #4ECDC4")
	workspaceAddMemberCmd.Flags().StringVarP(&memberRole, "role", "r", string(model.RoleMember), "Role in the workspace (admin, member, viewer)")
}

func runWorkspaceList(cmd *cobra.Command, args []string) error {
	workspaces, err := api.Workspaces(cmd.Context())
	if err != nil {
		return err
	}
	w := out(cmd)
	if len(workspaces) == 0 {
		fmt.Fprintln(w, "No workspaces. Create one with: taskflow workspace new \"Name\"")
		return nil
	}

	current := api.Config().Workspace
	for _, ws := range workspaces {
		marker := "  "
		if ws.ID == current {
			marker = "❯ "
		}
		role := ""
		for _, m := range ws.Members {
			if m.ID == api.Config().UserID {
				role = string(m.Role)
			}
		}
		fmt.Fprintf(w, "%s%s  %-20s %2d members  %s\n", marker, shortID(ws.ID), ws.Name, len(ws.Members), role)
	}
	return nil
}

func runWorkspaceNew(cmd *cobra.Command, args []string) error {
	ws, err := api.CreateWorkspace(cmd.Context(), service.CreateWorkspaceInput{
		Name:        strings.Join(args, " "),
		Description: workspaceDesc,
		Color:       workspaceColor,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out(cmd), "✓ Created workspace %q (%s)\n", ws.Name, shortID(ws.ID))
	return nil
}

func runWorkspaceUse(cmd *cobra.Command, args []string) error {
	w := out(cmd)
	if len(args) == 0 {
		if err := api.SetWorkspace(""); err != nil {
			return err
		}
		fmt.Fprintln(w, "✓ Default workspace cleared")
		return nil
	}

	ws, err := resolveWorkspace(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if err := api.SetWorkspace(ws.ID); err != nil {
		return err
	}
	fmt.Fprintf(w, "✓ Default workspace: %s\n", ws.Name)
	return nil
}

func runWorkspaceAddMember(cmd *cobra.Command, args []string) error {
	ws, err := resolveWorkspace(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	updated, err := api.AddMember(cmd.Context(), ws.ID, service.AddMemberInput{
		Email: args[1],
		Role:  model.Role(memberRole),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out(cmd), "✓ Added %s to %s as %s (%d members)\n", args[1], updated.Name, memberRole, len(updated.Members))
	return nil
}
