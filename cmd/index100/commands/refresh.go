package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// refreshCmd represents the refresh command
var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Refresh quarterly shares outstanding for the universe",
	Long: `Fetches the quarterly shares-outstanding history for every current
S&P 500 constituent and upserts it into the database.

Example:
  go run ./cmd/index100 refresh
  go run ./cmd/index100 refresh --tickers AAPL,MSFT`,
	RunE: runRefresh,
}

var refreshTickers []string

func init() {
	rootCmd.AddCommand(refreshCmd)

	refreshCmd.Flags().StringSliceVar(&refreshTickers, "tickers", nil, "refresh only these tickers instead of the whole universe")
}

func runRefresh(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.close()

	tickers := refreshTickers
	if len(tickers) == 0 {
		tickers, err = rt.universe.ListConstituents(ctx)
		if err != nil {
			return fmt.Errorf("fetch universe: %w", err)
		}
	}

	if err := rt.engine.RefreshFundamentals(ctx, tickers); err != nil {
		return err
	}

	fmt.Printf("Refreshed fundamentals for %d tickers\n", len(tickers))
	return nil
}
