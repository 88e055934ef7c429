package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Dump the current dedup state document",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().DumpState(cmd.Context(), os.Stdout)
	},
}
