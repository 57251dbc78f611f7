package index

import (
	"context"
	"fmt"
	"time"

	"github.com/Sudhamsh17/equal-weighted-index-100/internal/contracts"
	"github.com/Sudhamsh17/equal-weighted-index-100/pkg/config"
	"github.com/Sudhamsh17/equal-weighted-index-100/pkg/logger"
)

// Engine orchestrates one trading day's index computation: trading-day
// check, universe fetch, optional fundamentals refresh, price fetch, market
// caps, ranking, composition-change detection, rebalance and index-value
// derivation. All writes are idempotent, so re-running a date after a
// failure is the standard recovery path.
type Engine struct {
	store    contracts.Store
	market   contracts.MarketData
	universe contracts.UniverseProvider
	logger   *logger.Logger
	cfg      config.IndexConfig
}

// New creates a new Engine.
func New(store contracts.Store, market contracts.MarketData, universe contracts.UniverseProvider, cfg config.IndexConfig, log *logger.Logger) *Engine {
	return &Engine{
		store:    store,
		market:   market,
		universe: universe,
		logger:   log.WithField("module", "index"),
		cfg:      cfg,
	}
}

// DayResult summarizes one date's pipeline run.
type DayResult struct {
	Date         time.Time
	TradingDay   bool
	IndexValue   float64
	Rebalanced   bool
	Constituents int
}

// ComputeDay runs the full pipeline for one date. Non-trading days are a
// no-op with no side effects. refreshFundamentals controls the quarterly
// shares refresh, typically enabled once per quarter or on the first date
// of a range run.
func (e *Engine) ComputeDay(ctx context.Context, date time.Time, refreshFundamentals bool) (*DayResult, error) {
	dateStr := date.Format(contracts.DateFormat)
	log := e.logger.WithField("date", dateStr)

	open, err := e.market.IsTradingDay(ctx, e.cfg.ReferenceTicker, date)
	if err != nil {
		return nil, fmt.Errorf("trading day check for %s: %w", dateStr, err)
	}
	if !open {
		log.Info("Not a trading day, most likely a holiday, skipping")
		return &DayResult{Date: date, TradingDay: false}, nil
	}

	tickers, err := e.universe.ListConstituents(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch universe for %s: %w", dateStr, err)
	}
	log.WithField("universe", len(tickers)).Info("Fetched constituent universe")

	if refreshFundamentals {
		if err := e.RefreshFundamentals(ctx, tickers); err != nil {
			return nil, fmt.Errorf("fundamentals refresh for %s: %w", dateStr, err)
		}
	}

	prices, err := e.market.FetchClosingPrices(ctx, tickers, date)
	if err != nil {
		return nil, fmt.Errorf("fetch closing prices for %s: %w", dateStr, err)
	}

	capRows, skipped := buildMarketCaps(date, tickers, prices, func(ticker string) (float64, bool) {
		shares, ok, err := e.store.LatestSharesOnOrBefore(ctx, ticker, date)
		if err != nil {
			log.WithError(err).WithField("ticker", ticker).Warn("Shares lookup failed")
			return 0, false
		}
		return shares, ok
	})
	if len(skipped) > 0 {
		log.WithFields(map[string]interface{}{
			"skipped": len(skipped),
			"sample":  sample(skipped, 5),
		}).Warn("Tickers missing price or shares data excluded from cap table")
	}

	// Persist caps for the entire priced universe, not only the top 100, so
	// later corrections can re-rank without re-fetching prices.
	if err := e.store.UpsertMarketCaps(ctx, capRows); err != nil {
		return nil, fmt.Errorf("persist market caps for %s: %w", dateStr, err)
	}

	prevSnapshot, err := e.store.MostRecentCompositionBefore(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("load previous composition for %s: %w", dateStr, err)
	}

	newTop100, err := e.store.Top100ByMarketCap(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("rank top 100 for %s: %w", dateStr, err)
	}

	// Derive today's value from the holdings fixed at the last rebalance.
	// The very first computed day starts from the base value.
	var value float64
	if prevSnapshot != nil {
		var unpriced []string
		value, unpriced = revalue(prevSnapshot, prices)
		if len(unpriced) > 0 {
			log.WithFields(map[string]interface{}{
				"unpriced": unpriced,
				"snapshot": prevSnapshot.Date.Format(contracts.DateFormat),
			}).Warn("Holdings without a close today were skipped in revaluation")
		}
	} else {
		value = BaseValue
	}

	var prevTickers []string
	if prevSnapshot != nil {
		for _, entry := range prevSnapshot.Entries {
			prevTickers = append(prevTickers, entry.Ticker)
		}
	}

	diff := diffComposition(prevTickers, newTop100)
	if diff.Changed() {
		if len(diff.Removed) > 0 {
			log.WithFields(map[string]interface{}{
				"removed": diff.Removed,
				"added":   diff.Added,
			}).Info("Top-100 membership changed")
		}

		entries, err := equalWeightQuantities(newTop100, prices, value)
		if err != nil {
			return nil, fmt.Errorf("rebalance for %s: %w", dateStr, err)
		}
		if err := e.store.ReplaceComposition(ctx, date, entries); err != nil {
			return nil, fmt.Errorf("persist composition for %s: %w", dateStr, err)
		}
		log.WithField("constituents", len(entries)).Info("Rebalanced index composition")
	}

	if err := e.store.UpsertIndexValue(ctx, date, value); err != nil {
		return nil, fmt.Errorf("persist index value for %s: %w", dateStr, err)
	}

	log.WithFields(map[string]interface{}{
		"index_value": value,
		"rebalanced":  diff.Changed(),
	}).Info("Index value computed")

	return &DayResult{
		Date:         date,
		TradingDay:   true,
		IndexValue:   value,
		Rebalanced:   diff.Changed(),
		Constituents: len(newTop100),
	}, nil
}

// ComputeRange runs the pipeline for every calendar date in [from, to] in
// ascending order, pausing between dates to stay under provider limits.
// Fundamentals are refreshed only on the first date. The cross-date
// dependency (each day's value builds on the last rebalance snapshot) makes
// ascending order mandatory; a failed date aborts the loop so the caller can
// re-invoke from that date.
func (e *Engine) ComputeRange(ctx context.Context, from, to time.Time, refreshFundamentals bool) ([]DayResult, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("range end %s precedes start %s",
			to.Format(contracts.DateFormat), from.Format(contracts.DateFormat))
	}

	var results []DayResult
	first := true
	for date := from; !date.After(to); date = date.AddDate(0, 0, 1) {
		if !first {
			e.logger.WithField("delay", e.cfg.InterDateDelay.String()).Info("Waiting before next date")
			select {
			case <-ctx.Done():
				return results, ctx.Err()
			case <-time.After(e.cfg.InterDateDelay):
			}
		}

		result, err := e.ComputeDay(ctx, date, refreshFundamentals && first)
		if err != nil {
			return results, err
		}
		results = append(results, *result)
		first = false
	}

	return results, nil
}

// sample returns at most n items for log readability.
func sample(items []string, n int) []string {
	if len(items) <= n {
		return items
	}
	return items[:n]
}
