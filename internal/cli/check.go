package cli

import (
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run a single evaluation pass and print the alert batch",
	Long: `Run one evaluation pass against the configured broker gateway and print
the rendered alert batch to stdout. Empty output means nothing fired; a cron
payload should forward non-empty stdout to its delivery channel.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Check(cmd.Context())
	},
}
