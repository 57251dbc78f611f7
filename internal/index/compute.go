package index

import (
	"fmt"
	"sort"
	"time"

	"github.com/Sudhamsh17/equal-weighted-index-100/internal/contracts"
)

// BaseValue is the index level fixed on the inaugural day, before any
// composition exists.
const BaseValue = 10000.0

// CompositionDiff is the membership delta between the last persisted
// composition and today's top-100 ranking.
type CompositionDiff struct {
	Removed []string
	Added   []string

	// FirstRun is true when no prior composition exists at all.
	FirstRun bool
}

// Changed reports whether the delta triggers a rebalance: any removal, or
// the first run ever. With equal-sized sets an addition always implies a
// removal, so removals alone decide.
func (d CompositionDiff) Changed() bool {
	return len(d.Removed) > 0 || d.FirstRun
}

// diffComposition compares the previous constituent set against the new
// top-100. Results are sorted for stable logging.
func diffComposition(prev, next []string) CompositionDiff {
	prevSet := make(map[string]struct{}, len(prev))
	for _, t := range prev {
		prevSet[t] = struct{}{}
	}
	nextSet := make(map[string]struct{}, len(next))
	for _, t := range next {
		nextSet[t] = struct{}{}
	}

	diff := CompositionDiff{FirstRun: len(prev) == 0}
	for _, t := range prev {
		if _, ok := nextSet[t]; !ok {
			diff.Removed = append(diff.Removed, t)
		}
	}
	for _, t := range next {
		if _, ok := prevSet[t]; !ok {
			diff.Added = append(diff.Added, t)
		}
	}

	sort.Strings(diff.Removed)
	sort.Strings(diff.Added)
	return diff
}

// equalWeightQuantities computes the full rebalanced composition: every
// constituent gets weight 1/N of the index value, converted to unit
// quantities at the day's closing prices. The rebalance re-weights all
// constituents, not only the changed ones.
func equalWeightQuantities(top100 []string, prices map[string]float64, indexValue float64) ([]contracts.CompositionEntry, error) {
	if len(top100) == 0 {
		return nil, fmt.Errorf("cannot rebalance an empty constituent set")
	}

	weight := 1.0 / float64(len(top100))
	entries := make([]contracts.CompositionEntry, 0, len(top100))
	for _, ticker := range top100 {
		price, ok := prices[ticker]
		if !ok || price <= 0 {
			return nil, fmt.Errorf("no usable closing price for constituent %s", ticker)
		}
		entries = append(entries, contracts.CompositionEntry{
			Ticker: ticker,
			Qty:    (weight * indexValue) / price,
		})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Ticker < entries[j].Ticker })
	return entries, nil
}

// revalue prices the held quantities of the most recent snapshot at today's
// closes. Holdings with no price today are skipped and reported so the
// caller can log the gap.
func revalue(snapshot *contracts.CompositionSnapshot, prices map[string]float64) (value float64, unpriced []string) {
	for _, entry := range snapshot.Entries {
		price, ok := prices[entry.Ticker]
		if !ok {
			unpriced = append(unpriced, entry.Ticker)
			continue
		}
		value += entry.Qty * price
	}
	return value, unpriced
}

// buildMarketCaps joins prices with the freshest known shares outstanding.
// Tickers missing either input are excluded from the day's cap table and
// returned for logging; they can never reach the top-100.
func buildMarketCaps(date time.Time, tickers []string, prices map[string]float64, sharesFor func(ticker string) (float64, bool)) (rows []contracts.MarketCapRecord, skipped []string) {
	for _, ticker := range tickers {
		price, havePrice := prices[ticker]
		shares, haveShares := sharesFor(ticker)
		if !havePrice || !haveShares {
			skipped = append(skipped, ticker)
			continue
		}

		rows = append(rows, contracts.MarketCapRecord{
			Date:              date,
			Ticker:            ticker,
			SharesOutstanding: shares,
			ClosingPrice:      price,
			MarketCap:         price * shares,
		})
	}
	return rows, skipped
}
