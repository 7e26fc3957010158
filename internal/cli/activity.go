package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var activityCmd = &cobra.Command{
	Use:     "activity",
	Aliases: []string{"feed"},
	Short:   "Show the latest activity",
	RunE:    runActivity,
}

var activityLimit int

func init() {
	activityCmd.Flags().IntVarP(&activityLimit, "limit", "n", 20, "Number of entries to show (server keeps the latest 50)")
}

func runActivity(cmd *cobra.Command, args []string) error {
	wsID, err := workspaceRef(cmd, false)
	if err != nil {
		return err
	}
	activities, err := api.Activities(cmd.Context(), wsID)
	if err != nil {
		return err
	}
	w := out(cmd)
	if len(activities) == 0 {
		fmt.Fprintln(w, "No activity yet.")
		return nil
	}
	if activityLimit > 0 && len(activities) > activityLimit {
		activities = activities[:activityLimit]
	}
	for _, a := range activities {
		fmt.Fprintf(w, "  %s  %-15s %s\n", a.CreatedAt.Local().Format(time.DateTime), a.Type, a.Message)
	}
	return nil
}
