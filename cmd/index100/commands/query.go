package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// queryCmd represents the query command
var queryCmd = &cobra.Command{
	Use:   "query [sql]",
	Short: "Run a read-only SQL query against the index tables",
	Long: `Executes an arbitrary SELECT statement and prints the rows. Useful
for ad-hoc inspection of market caps, compositions and index values.

Example:
  go run ./cmd/index100 query "SELECT date, value FROM index_performance ORDER BY date DESC LIMIT 10"`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.close()

	result, err := rt.store.CustomQuery(ctx, args[0])
	if err != nil {
		return err
	}

	fmt.Println(strings.Join(result.Columns, "\t"))
	for _, row := range result.Rows {
		cells := make([]string, 0, len(row))
		for _, cell := range row {
			cells = append(cells, fmt.Sprintf("%v", cell))
		}
		fmt.Println(strings.Join(cells, "\t"))
	}
	fmt.Printf("\n%d rows\n", len(result.Rows))
	return nil
}
