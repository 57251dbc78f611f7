package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Sudhamsh17/equal-weighted-index-100/internal/contracts"
)

// Store implements contracts.Store on top of a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a new Store.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// UpsertQuarterlyShares inserts or replaces shares observations by
// (ticker, report_date).
func (s *Store) UpsertQuarterlyShares(ctx context.Context, rows []contracts.SharesObservation) error {
	if len(rows) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(`
			INSERT INTO quarterly_shares (ticker, report_date, shares_outstanding)
			VALUES ($1, $2, $3)
			ON CONFLICT (ticker, report_date) DO UPDATE SET
				shares_outstanding = EXCLUDED.shares_outstanding
		`, row.Ticker, row.ReportDate, row.SharesOutstanding)
	}

	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upsert quarterly shares: %w", err)
	}
	return nil
}

// UpsertMarketCaps inserts or replaces market cap rows by (date, ticker).
func (s *Store) UpsertMarketCaps(ctx context.Context, rows []contracts.MarketCapRecord) error {
	if len(rows) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(`
			INSERT INTO market_caps (date, ticker, shares_outstanding, closing_price, market_cap)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (date, ticker) DO UPDATE SET
				shares_outstanding = EXCLUDED.shares_outstanding,
				closing_price      = EXCLUDED.closing_price,
				market_cap         = EXCLUDED.market_cap
		`, row.Date, row.Ticker, row.SharesOutstanding, row.ClosingPrice, row.MarketCap)
	}

	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upsert market caps: %w", err)
	}
	return nil
}

// LatestSharesOnOrBefore returns the most recent shares observation with
// report_date <= date.
func (s *Store) LatestSharesOnOrBefore(ctx context.Context, ticker string, date time.Time) (float64, bool, error) {
	query := `
		SELECT shares_outstanding FROM quarterly_shares
		WHERE ticker = $1 AND report_date <= $2
		ORDER BY report_date DESC
		LIMIT 1
	`

	var shares float64
	err := s.pool.QueryRow(ctx, query, ticker, date).Scan(&shares)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("latest shares for %s: %w", ticker, err)
	}
	return shares, true, nil
}

// Top100ByMarketCap returns the day's largest tickers by market cap.
// Ordering is market_cap descending, ties broken by ticker ascending, so
// re-runs over identical data always rank identically.
func (s *Store) Top100ByMarketCap(ctx context.Context, date time.Time) ([]string, error) {
	query := `
		SELECT ticker FROM market_caps
		WHERE date = $1
		ORDER BY market_cap DESC, ticker ASC
		LIMIT 100
	`

	rows, err := s.pool.Query(ctx, query, date)
	if err != nil {
		return nil, fmt.Errorf("top 100 by market cap: %w", err)
	}
	defer rows.Close()

	var tickers []string
	for rows.Next() {
		var ticker string
		if err := rows.Scan(&ticker); err != nil {
			return nil, err
		}
		tickers = append(tickers, ticker)
	}
	return tickers, rows.Err()
}

// MostRecentCompositionBefore returns the snapshot with the largest date
// strictly before the given date, or nil when no snapshot exists yet.
func (s *Store) MostRecentCompositionBefore(ctx context.Context, date time.Time) (*contracts.CompositionSnapshot, error) {
	query := `
		SELECT date, ticker, ticker_qty FROM index_composition
		WHERE date = (SELECT MAX(date) FROM index_composition WHERE date < $1)
		ORDER BY ticker ASC
	`

	rows, err := s.pool.Query(ctx, query, date)
	if err != nil {
		return nil, fmt.Errorf("most recent composition: %w", err)
	}
	defer rows.Close()

	var snapshot *contracts.CompositionSnapshot
	for rows.Next() {
		var (
			snapDate time.Time
			entry    contracts.CompositionEntry
		)
		if err := rows.Scan(&snapDate, &entry.Ticker, &entry.Qty); err != nil {
			return nil, err
		}
		if snapshot == nil {
			snapshot = &contracts.CompositionSnapshot{Date: snapDate}
		}
		snapshot.Entries = append(snapshot.Entries, entry)
	}
	return snapshot, rows.Err()
}

// ReplaceComposition replaces the entire snapshot for the date in one
// transaction. Delete-then-insert keeps re-runs from leaving stale rows when
// the new composition differs from a previously persisted one.
func (s *Store) ReplaceComposition(ctx context.Context, date time.Time, entries []contracts.CompositionEntry) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin replace composition: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM index_composition WHERE date = $1`, date); err != nil {
		return fmt.Errorf("clear composition: %w", err)
	}

	batch := &pgx.Batch{}
	for _, entry := range entries {
		batch.Queue(`
			INSERT INTO index_composition (date, ticker, ticker_qty)
			VALUES ($1, $2, $3)
		`, date, entry.Ticker, entry.Qty)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert composition: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit composition: %w", err)
	}
	return nil
}

// UpsertIndexValue inserts or replaces the index value for the date.
func (s *Store) UpsertIndexValue(ctx context.Context, date time.Time, value float64) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO index_performance (date, index_value)
		VALUES ($1, $2)
		ON CONFLICT (date) DO UPDATE SET index_value = EXCLUDED.index_value
	`, date, value)
	if err != nil {
		return fmt.Errorf("upsert index value: %w", err)
	}
	return nil
}

// PreviousIndexValue returns the most recent index value strictly before
// the date.
func (s *Store) PreviousIndexValue(ctx context.Context, date time.Time) (float64, bool, error) {
	query := `
		SELECT index_value FROM index_performance
		WHERE date < $1
		ORDER BY date DESC
		LIMIT 1
	`

	var value float64
	err := s.pool.QueryRow(ctx, query, date).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("previous index value: %w", err)
	}
	return value, true, nil
}

// IndexValues returns the index series between from and to, inclusive,
// ordered by date ascending.
func (s *Store) IndexValues(ctx context.Context, from, to time.Time) ([]contracts.IndexValueRecord, error) {
	query := `
		SELECT date, index_value FROM index_performance
		WHERE date BETWEEN $1 AND $2
		ORDER BY date ASC
	`

	rows, err := s.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("index values: %w", err)
	}
	defer rows.Close()

	var values []contracts.IndexValueRecord
	for rows.Next() {
		var v contracts.IndexValueRecord
		if err := rows.Scan(&v.Date, &v.Value); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// LatestIndexValue returns the most recent index value, or ErrEmptyResult
// when nothing has been computed yet.
func (s *Store) LatestIndexValue(ctx context.Context) (*contracts.IndexValueRecord, error) {
	query := `
		SELECT date, index_value FROM index_performance
		ORDER BY date DESC
		LIMIT 1
	`

	var v contracts.IndexValueRecord
	err := s.pool.QueryRow(ctx, query).Scan(&v.Date, &v.Value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, contracts.ErrEmptyResult
	}
	if err != nil {
		return nil, fmt.Errorf("latest index value: %w", err)
	}
	return &v, nil
}

// CompositionAt returns the snapshot active on the given date: the snapshot
// for the date itself when one exists, otherwise the most recent one before
// it. ErrEmptyResult when no snapshot covers the date.
func (s *Store) CompositionAt(ctx context.Context, date time.Time) (*contracts.CompositionSnapshot, error) {
	query := `
		SELECT date, ticker, ticker_qty FROM index_composition
		WHERE date = (SELECT MAX(date) FROM index_composition WHERE date <= $1)
		ORDER BY ticker ASC
	`

	rows, err := s.pool.Query(ctx, query, date)
	if err != nil {
		return nil, fmt.Errorf("composition at date: %w", err)
	}
	defer rows.Close()

	var snapshot *contracts.CompositionSnapshot
	for rows.Next() {
		var (
			snapDate time.Time
			entry    contracts.CompositionEntry
		)
		if err := rows.Scan(&snapDate, &entry.Ticker, &entry.Qty); err != nil {
			return nil, err
		}
		if snapshot == nil {
			snapshot = &contracts.CompositionSnapshot{Date: snapDate}
		}
		snapshot.Entries = append(snapshot.Entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if snapshot == nil {
		return nil, contracts.ErrEmptyResult
	}
	return snapshot, nil
}
