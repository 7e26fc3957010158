package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Show or set the TaskFlow server",
	RunE:  runServerShow,
}

var serverSetCmd = &cobra.Command{
	Use:   "set [url]",
	Short: "Set the server URL",
	Long: `Set the server URL used by every command.

Examples:
  taskflow server set http://localhost:4000
  taskflow server set https://tasks.example.com`,
	Args: cobra.ExactArgs(1),
	RunE: runServerSet,
}

func init() {
	serverCmd.AddCommand(serverSetCmd)
}

func runServerShow(cmd *cobra.Command, args []string) error {
	cfg := api.Config()
	w := out(cmd)
	fmt.Fprintf(w, "Server:    %s\n", cfg.ServerURL)
	if api.IsLoggedIn() {
		fmt.Fprintf(w, "Account:   %s\n", cfg.Email)
	} else {
		fmt.Fprintln(w, "Account:   not logged in")
	}
	if cfg.Workspace != "" {
		fmt.Fprintf(w, "Workspace: %s\n", cfg.Workspace)
	}
	return nil
}

func runServerSet(cmd *cobra.Command, args []string) error {
	if err := api.SetServer(args[0]); err != nil {
		return err
	}
	fmt.Fprintf(out(cmd), "✓ Server set to %s\n", api.Config().ServerURL)
	return nil
}
