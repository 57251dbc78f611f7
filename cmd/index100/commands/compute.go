package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sudhamsh17/equal-weighted-index-100/internal/contracts"
	"github.com/Sudhamsh17/equal-weighted-index-100/internal/index"
)

// computeCmd represents the compute command
var computeCmd = &cobra.Command{
	Use:   "compute",
	Short: "Compute the index for a date or date range",
	Long: `Runs the daily pipeline: trading-day check, universe fetch, price
download, market-cap ranking, rebalancing and index-value derivation.

With --date a single day is computed. With --from/--to every calendar day in
the range is computed in order, waiting --delay between dates to stay under
provider rate limits.

Example:
  go run ./cmd/index100 compute --date 2025-01-02
  go run ./cmd/index100 compute --from 2025-01-02 --to 2025-01-31 --refresh-fundamentals`,
	RunE: runCompute,
}

var (
	computeDate    string
	computeFrom    string
	computeTo      string
	computeDelay   time.Duration
	computeRefresh bool
)

func init() {
	rootCmd.AddCommand(computeCmd)

	computeCmd.Flags().StringVar(&computeDate, "date", "", "single date to compute (YYYY-MM-DD)")
	computeCmd.Flags().StringVar(&computeFrom, "from", "", "range start (YYYY-MM-DD)")
	computeCmd.Flags().StringVar(&computeTo, "to", "", "range end (YYYY-MM-DD)")
	computeCmd.Flags().DurationVar(&computeDelay, "delay", 0, "override the pause between dates in range mode")
	computeCmd.Flags().BoolVar(&computeRefresh, "refresh-fundamentals", false, "refresh quarterly shares before computing")
}

func runCompute(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if computeDate == "" && (computeFrom == "" || computeTo == "") {
		return fmt.Errorf("either --date or both --from and --to are required")
	}
	if computeDate != "" && (computeFrom != "" || computeTo != "") {
		return fmt.Errorf("--date and --from/--to are mutually exclusive")
	}

	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.close()

	if computeDelay > 0 {
		rt.cfg.Index.InterDateDelay = computeDelay
		rt.engine = index.New(rt.store, rt.market, rt.universe, rt.cfg.Index, rt.logger)
	}

	if computeDate != "" {
		date, err := time.Parse(contracts.DateFormat, computeDate)
		if err != nil {
			return fmt.Errorf("invalid --date: %w", err)
		}

		result, err := rt.engine.ComputeDay(ctx, date, computeRefresh)
		if err != nil {
			return err
		}
		printDayResult(result)
		return nil
	}

	from, err := time.Parse(contracts.DateFormat, computeFrom)
	if err != nil {
		return fmt.Errorf("invalid --from: %w", err)
	}
	to, err := time.Parse(contracts.DateFormat, computeTo)
	if err != nil {
		return fmt.Errorf("invalid --to: %w", err)
	}

	results, err := rt.engine.ComputeRange(ctx, from, to, computeRefresh)
	for _, result := range results {
		printDayResult(&result)
	}
	if err != nil {
		return err
	}

	fmt.Printf("\n%d dates computed\n", len(results))
	return nil
}

func printDayResult(result *index.DayResult) {
	dateStr := result.Date.Format(contracts.DateFormat)
	if !result.TradingDay {
		fmt.Printf("%s  market closed\n", dateStr)
		return
	}

	marker := ""
	if result.Rebalanced {
		marker = "  (rebalanced)"
	}
	fmt.Printf("%s  %.4f%s\n", dateStr, result.IndexValue, marker)
}
