package contracts

import "time"

// DateFormat is the canonical calendar-date layout used across the system.
const DateFormat = "2006-01-02"

// SharesObservation is a point-in-time fundamentals disclosure: shares
// outstanding as reported on a quarterly report date. Re-fetching corrected
// data for the same (ticker, report date) overwrites in place.
type SharesObservation struct {
	Ticker            string
	ReportDate        time.Time
	SharesOutstanding float64
}

// MarketCapRecord is one ticker's market capitalization on one trading day,
// derived from the closing price and the most recent shares observation with
// report date on or before that day.
type MarketCapRecord struct {
	Date              time.Time
	Ticker            string
	SharesOutstanding float64
	ClosingPrice      float64
	MarketCap         float64
}

// CompositionEntry is one constituent's fixed unit quantity inside a
// composition snapshot.
type CompositionEntry struct {
	Ticker string
	Qty    float64
}

// CompositionSnapshot is the full set of (ticker, quantity) holdings written
// at a rebalance. Snapshots exist only for rebalance dates; on other days the
// index is revalued from the most recent snapshot.
type CompositionSnapshot struct {
	Date    time.Time
	Entries []CompositionEntry
}

// IndexValueRecord is the index level for one trading day.
type IndexValueRecord struct {
	Date  time.Time
	Value float64
}
