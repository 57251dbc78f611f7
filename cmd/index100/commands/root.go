package commands

import (
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "index100",
	Short: "Equal-weighted top-100 market cap index",
	Long: `index100 tracks an equal-weighted index of the 100 largest US stocks
by market capitalization, drawn from the S&P 500 universe.

The daily pipeline fetches closing prices and shares outstanding, ranks the
universe by market cap, rebalances on membership changes and derives the
index value from the held quantities.

Usage:
  go run ./cmd/index100 [command]

Examples:
  go run ./cmd/index100 compute --date 2025-01-02
  go run ./cmd/index100 compute --from 2025-01-02 --to 2025-01-31
  go run ./cmd/index100 scheduler
  go run ./cmd/index100 api`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}
