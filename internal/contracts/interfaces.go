package contracts

import (
	"context"
	"time"
)

// Store is the persistence gateway over the four index tables. All writes
// are idempotent upserts so any date can safely be recomputed.
type Store interface {
	// UpsertQuarterlyShares inserts or replaces by (ticker, report_date).
	UpsertQuarterlyShares(ctx context.Context, rows []SharesObservation) error

	// UpsertMarketCaps inserts or replaces by (date, ticker).
	UpsertMarketCaps(ctx context.Context, rows []MarketCapRecord) error

	// LatestSharesOnOrBefore returns the most recent shares observation with
	// report_date <= date. ok is false when no observation exists.
	LatestSharesOnOrBefore(ctx context.Context, ticker string, date time.Time) (shares float64, ok bool, err error)

	// Top100ByMarketCap returns the tickers with the largest market cap on
	// the date, ordered market_cap descending with ties broken by ticker
	// ascending. Returns fewer than 100 when the day has fewer priced rows.
	Top100ByMarketCap(ctx context.Context, date time.Time) ([]string, error)

	// MostRecentCompositionBefore returns the snapshot with the largest date
	// strictly before the given date, or nil when none exists.
	MostRecentCompositionBefore(ctx context.Context, date time.Time) (*CompositionSnapshot, error)

	// ReplaceComposition replaces the entire snapshot for the date. Callers
	// pass the full new composition, not a delta.
	ReplaceComposition(ctx context.Context, date time.Time, entries []CompositionEntry) error

	// UpsertIndexValue inserts or replaces the index value for the date.
	UpsertIndexValue(ctx context.Context, date time.Time, value float64) error

	// PreviousIndexValue returns the most recent index value strictly before
	// the date. ok is false when no value exists.
	PreviousIndexValue(ctx context.Context, date time.Time) (value float64, ok bool, err error)
}

// MarketData is the acquisition side: closing prices, fundamentals and
// trading-calendar checks against the external provider.
type MarketData interface {
	// IsTradingDay reports whether the reference ticker has priced data for
	// exactly the given date.
	IsTradingDay(ctx context.Context, refTicker string, date time.Time) (bool, error)

	// FetchClosingPrices returns ticker -> close for the date. Tickers the
	// provider has no data for are simply absent from the map. Returns
	// ErrRateLimitExhausted when retries run out on any chunk.
	FetchClosingPrices(ctx context.Context, tickers []string, date time.Time) (map[string]float64, error)

	// FetchQuarterlyShares returns the quarterly shares-outstanding history
	// for a ticker. An empty slice (not an error) when the provider lacks
	// the field.
	FetchQuarterlyShares(ctx context.Context, ticker string) ([]SharesObservation, error)

	// PreviousTradingDate resolves the most recent trading date strictly
	// before the given date. Returns ErrNoPreviousTradingDate when the
	// lookback window has no priced data.
	PreviousTradingDate(ctx context.Context, refTicker string, date time.Time) (time.Time, error)
}

// UniverseProvider lists the reference universe of eligible constituents.
type UniverseProvider interface {
	ListConstituents(ctx context.Context) ([]string, error)
}
