package cli

import (
	"github.com/spf13/cobra"

	"portfolio-alerts/internal/app"
)

var (
	simTicker string
	simDayPct float64
	simDayPnL float64
	simNotify bool
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Feed a synthetic snapshot through the full alert pipeline",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().SimulateAlert(cmd.Context(), app.SimulateOptions{
			Ticker: simTicker,
			DayPct: simDayPct,
			DayPnL: simDayPnL,
			Notify: simNotify,
		})
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simTicker, "ticker", "AAPL", "Ticker for the synthetic position")
	simulateCmd.Flags().Float64Var(&simDayPct, "day-pct", -0.06, "Day change of the synthetic position (ratio, e.g. -0.06)")
	simulateCmd.Flags().Float64Var(&simDayPnL, "day-pnl", 0, "Aggregate day P&L of the synthetic portfolio")
	simulateCmd.Flags().BoolVar(&simNotify, "notify", false, "Deliver through the configured notifier instead of stdout")
}
