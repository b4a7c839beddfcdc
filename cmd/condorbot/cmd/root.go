package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "condorbot",
	Short: "An autonomous BTC-CLP trading bot for Buda.com",
	Long: `Condorbot runs a pluggable-strategy trading engine against Buda.com.

It provides:
  - Paper trading against live market data, no exchange account needed
  - Live market-order execution with bounded retry and cancellation
  - Smart-DCA, grid and model-backed strategies
  - Hard risk limits: cooldowns, loss circuit breaker, trade sizing caps
  - A REST API plus a websocket event stream for clients`,
}

// Execute runs the root command and its children.
func Execute() error {
	return rootCmd.Execute()
}
