package store

import (
	"context"
	"fmt"
)

// schemaDDL creates the four index tables. Mirrors the primary keys the
// downstream reporting tools rely on.
var schemaDDL = []string{
	`CREATE TABLE IF NOT EXISTS quarterly_shares (
		ticker             TEXT             NOT NULL,
		report_date        DATE             NOT NULL,
		shares_outstanding DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (ticker, report_date)
	)`,
	`CREATE TABLE IF NOT EXISTS market_caps (
		date               DATE             NOT NULL,
		ticker             TEXT             NOT NULL,
		shares_outstanding DOUBLE PRECISION NOT NULL,
		closing_price      DOUBLE PRECISION NOT NULL,
		market_cap         DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (date, ticker)
	)`,
	`CREATE TABLE IF NOT EXISTS index_composition (
		date       DATE             NOT NULL,
		ticker     TEXT             NOT NULL,
		ticker_qty DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (date, ticker)
	)`,
	`CREATE TABLE IF NOT EXISTS index_performance (
		date        DATE             PRIMARY KEY,
		index_value DOUBLE PRECISION NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_market_caps_date_cap
		ON market_caps (date, market_cap DESC, ticker ASC)`,
}

// EnsureSchema creates the tables if they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, ddl := range schemaDDL {
		if _, err := s.pool.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
