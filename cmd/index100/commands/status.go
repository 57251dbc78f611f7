package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sudhamsh17/equal-weighted-index-100/internal/contracts"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current index state",
	Long: `Prints the latest computed index value and the composition currently
in effect.

Example:
  go run ./cmd/index100 status`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.close()

	if err := rt.db.Ping(ctx); err != nil {
		return fmt.Errorf("database unreachable: %w", err)
	}
	fmt.Println("database: ok")

	latest, err := rt.store.LatestIndexValue(ctx)
	if err != nil {
		if errors.Is(err, contracts.ErrEmptyResult) {
			fmt.Println("index: no values computed yet")
			return nil
		}
		return err
	}
	fmt.Printf("index: %.4f as of %s\n", latest.Value, latest.Date.Format(contracts.DateFormat))

	snapshot, err := rt.store.CompositionAt(ctx, latest.Date)
	if err != nil {
		if errors.Is(err, contracts.ErrEmptyResult) {
			fmt.Println("composition: none")
			return nil
		}
		return err
	}
	fmt.Printf("composition: %d constituents, rebalanced %s\n",
		len(snapshot.Entries), snapshot.Date.Format(contracts.DateFormat))

	counts, err := rt.store.CustomQuery(ctx, `SELECT
		(SELECT COUNT(*) FROM quarterly_shares) AS quarterly_shares,
		(SELECT COUNT(*) FROM market_caps) AS market_caps,
		(SELECT COUNT(*) FROM index_composition) AS index_composition,
		(SELECT COUNT(*) FROM index_performance) AS index_performance`)
	if err != nil {
		return err
	}
	for i, col := range counts.Columns {
		fmt.Printf("%s: %v rows\n", col, counts.Rows[0][i])
	}

	return nil
}
