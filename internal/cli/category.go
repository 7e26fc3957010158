package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/existflow/taskflow/internal/service"
)

var categoryCmd = &cobra.Command{
	Use:     "category",
	Aliases: []string{"cat"},
	Short:   "Manage categories",
}

var categoryListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List categories of the workspace, or of all workspaces",
	RunE:    runCategoryList,
}

var categoryNewCmd = &cobra.Command{
	Use:   "new [name]",
	Short: "Add a category to the workspace",
	Long: `Add a category to the workspace.

Examples:
  taskflow category new Design
  taskflow category new Bugs --color "#FF6B6B" --icon "🐞" -w Launch`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCategoryNew,
}

var (
	categoryColor string
	categoryIcon  string
)

func init() {
	categoryCmd.AddCommand(categoryListCmd)
	categoryCmd.AddCommand(categoryNewCmd)

	categoryNewCmd.Flags().StringVar(&categoryColor, "color", "#4ECDC4", "Color")
	categoryNewCmd.Flags().StringVar(&categoryIcon, "icon", "📁", "Icon")
}

func runCategoryList(cmd *cobra.Command, args []string) error {
	wsID, err := workspaceRef(cmd, false)
	if err != nil {
		return err
	}
	categories, err := api.Categories(cmd.Context(), wsID)
	if err != nil {
		return err
	}
	w := out(cmd)
	if len(categories) == 0 {
		fmt.Fprintln(w, "No categories.")
		return nil
	}
	for _, c := range categories {
		fmt.Fprintf(w, "  %s %s  %-16s %s\n", c.Icon, shortID(c.ID), c.Name, c.Color)
	}
	return nil
}

func runCategoryNew(cmd *cobra.Command, args []string) error {
	wsID, err := workspaceRef(cmd, true)
	if err != nil {
		return err
	}
	c, err := api.CreateCategory(cmd.Context(), service.CreateCategoryInput{
		WorkspaceID: wsID,
		Name:        strings.Join(args, " "),
		Color:       categoryColor,
		Icon:        categoryIcon,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out(cmd), "✓ Created category %s %s\n", c.Icon, c.Name)
	return nil
}
