package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/Sudhamsh17/equal-weighted-index-100/internal/contracts"
)

// QueryResult holds the rows of an ad-hoc read query.
type QueryResult struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// CustomQuery runs an arbitrary read-only query and returns tuple rows. This
// is the escape hatch downstream analytics tools read against; it is not part
// of the computation path. Only SELECT statements are accepted.
func (s *Store) CustomQuery(ctx context.Context, query string) (*QueryResult, error) {
	trimmed := strings.TrimSpace(query)
	if !strings.HasPrefix(strings.ToUpper(trimmed), "SELECT") {
		return nil, fmt.Errorf("custom query must be a SELECT statement")
	}

	rows, err := s.pool.Query(ctx, trimmed)
	if err != nil {
		return nil, fmt.Errorf("custom query: %w", err)
	}
	defer rows.Close()

	result := &QueryResult{}
	for _, desc := range rows.FieldDescriptions() {
		result.Columns = append(result.Columns, desc.Name)
	}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(result.Rows) == 0 {
		return result, contracts.ErrEmptyResult
	}
	return result, nil
}
