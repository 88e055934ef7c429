package cli

import (
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	alertsLimit          int
	alertsPruneOlderThan time.Duration
)

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "List recently fired alerts from the audit trail",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().ListRecentAlerts(cmd.Context(), os.Stdout, alertsLimit)
	},
}

var alertsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete audit rows older than the retention window",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().PruneAlerts(cmd.Context(), os.Stdout, alertsPruneOlderThan)
	},
}

func init() {
	alertsCmd.Flags().IntVar(&alertsLimit, "limit", 20, "Maximum number of rows to list")
	alertsPruneCmd.Flags().DurationVar(&alertsPruneOlderThan, "older-than", 720*time.Hour, "Retention window; rows older than this are deleted")
	alertsCmd.AddCommand(alertsPruneCmd)
}
