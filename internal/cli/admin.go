package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Server administration (global admins only)",
}

var adminUsersCmd = &cobra.Command{
	Use:   "users",
	Short: "List every account",
	RunE:  runAdminUsers,
}

func init() {
	adminCmd.AddCommand(adminUsersCmd)
}

func runAdminUsers(cmd *cobra.Command, args []string) error {
	users, err := api.Users(cmd.Context())
	if err != nil {
		return err
	}
	w := out(cmd)
	for _, u := range users {
		verified := " "
		if u.EmailVerified {
			verified = "✓"
		}
		fmt.Fprintf(w, "  %s %s  %-24s %-20s %-7s %s\n", verified, shortID(u.ID), u.Email, u.Name, u.Role, u.Status)
	}
	fmt.Fprintf(w, "%d users\n", len(users))
	return nil
}
