package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/Sudhamsh17/equal-weighted-index-100/internal/contracts"
	"github.com/Sudhamsh17/equal-weighted-index-100/pkg/config"
	"github.com/Sudhamsh17/equal-weighted-index-100/pkg/logger"
)

// PriceSource downloads daily closing prices for a batch of symbols.
// The result maps symbol -> date string -> close.
type PriceSource interface {
	DailyCloses(ctx context.Context, symbols []string, start, end time.Time) (map[string]map[string]float64, error)
}

// FundamentalsSource downloads quarterly shares-outstanding history.
type FundamentalsSource interface {
	QuarterlyShares(ctx context.Context, symbol string) ([]contracts.SharesObservation, error)
}

// previousDateLookbackDays is the window searched when resolving the last
// trading day before a date.
const previousDateLookbackDays = 10

// Adapter implements contracts.MarketData on top of a bulk price source. It
// owns the provider-throughput concerns: fixed-size request chunks and the
// bounded randomized-backoff retry on rate limiting.
type Adapter struct {
	prices       PriceSource
	fundamentals FundamentalsSource
	logger       *logger.Logger
	chunkSize    int
	retry        RetryPolicy
}

// New creates a new Adapter.
func New(prices PriceSource, fundamentals FundamentalsSource, cfg config.IndexConfig, log *logger.Logger) *Adapter {
	return &Adapter{
		prices:       prices,
		fundamentals: fundamentals,
		logger:       log.WithField("module", "marketdata"),
		chunkSize:    cfg.ChunkSize,
		retry:        NewRetryPolicy(cfg.RetryMaxAttempts, cfg.RetryMinWait, cfg.RetryMaxWait),
	}
}

// IsTradingDay reports whether the reference ticker has a priced row for
// exactly the given date. Weekends and holidays return no rows from the
// provider, so absence of the date means the market was closed.
func (a *Adapter) IsTradingDay(ctx context.Context, refTicker string, date time.Time) (bool, error) {
	closes, err := a.fetchChunk(ctx, []string{refTicker}, date, date.AddDate(0, 0, 1))
	if err != nil {
		return false, err
	}

	_, ok := closes[refTicker][date.Format(contracts.DateFormat)]
	return ok, nil
}

// FetchClosingPrices fetches ticker -> close for the date across the whole
// universe, in chunks, each chunk retried under the rate-limit policy.
func (a *Adapter) FetchClosingPrices(ctx context.Context, tickers []string, date time.Time) (map[string]float64, error) {
	dateStr := date.Format(contracts.DateFormat)
	end := date.AddDate(0, 0, 1)

	prices := make(map[string]float64, len(tickers))
	for _, chunk := range chunkSymbols(tickers, a.chunkSize) {
		closes, err := a.fetchChunk(ctx, chunk, date, end)
		if err != nil {
			return nil, fmt.Errorf("fetch chunk of %d tickers: %w", len(chunk), err)
		}

		for symbol, byDate := range closes {
			if price, ok := byDate[dateStr]; ok {
				prices[symbol] = price
			}
		}
	}

	if len(prices) == 0 {
		// Data gap: the date was absent from every chunk. The pipeline
		// proceeds with whatever was returned.
		a.logger.WithField("date", dateStr).Warn("No closing prices returned for date")
	}

	a.logger.WithFields(map[string]interface{}{
		"date":      dateStr,
		"requested": len(tickers),
		"priced":    len(prices),
	}).Info("Fetched closing prices")

	return prices, nil
}

// fetchChunk issues one provider request under the retry policy.
func (a *Adapter) fetchChunk(ctx context.Context, symbols []string, start, end time.Time) (map[string]map[string]float64, error) {
	var closes map[string]map[string]float64

	attempt := 0
	err := a.retry.Do(ctx, func() error {
		attempt++
		var err error
		closes, err = a.prices.DailyCloses(ctx, symbols, start, end)
		if err != nil && attempt > 1 {
			a.logger.WithFields(map[string]interface{}{
				"attempt": attempt,
				"symbols": len(symbols),
			}).Warn("Rate limited, retrying chunk")
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return closes, nil
}

// FetchQuarterlyShares returns the quarterly shares history for one ticker.
// An empty slice means the provider lacks the field for that symbol.
func (a *Adapter) FetchQuarterlyShares(ctx context.Context, ticker string) ([]contracts.SharesObservation, error) {
	return a.fundamentals.QuarterlyShares(ctx, ticker)
}

// PreviousTradingDate resolves the most recent trading date strictly before
// the given date using a bounded lookback window.
func (a *Adapter) PreviousTradingDate(ctx context.Context, refTicker string, date time.Time) (time.Time, error) {
	start := date.AddDate(0, 0, -previousDateLookbackDays)

	closes, err := a.fetchChunk(ctx, []string{refTicker}, start, date)
	if err != nil {
		return time.Time{}, err
	}

	var latest time.Time
	for dateStr := range closes[refTicker] {
		d, err := time.Parse(contracts.DateFormat, dateStr)
		if err != nil {
			continue
		}
		if d.Before(date) && d.After(latest) {
			latest = d
		}
	}

	if latest.IsZero() {
		return time.Time{}, fmt.Errorf("%w: ticker=%s date=%s",
			contracts.ErrNoPreviousTradingDate, refTicker, date.Format(contracts.DateFormat))
	}
	return latest, nil
}

// chunkSymbols splits symbols into fixed-size chunks, preserving order.
func chunkSymbols(symbols []string, size int) [][]string {
	if size <= 0 {
		return [][]string{symbols}
	}

	var chunks [][]string
	for start := 0; start < len(symbols); start += size {
		end := start + size
		if end > len(symbols) {
			end = len(symbols)
		}
		chunks = append(chunks, symbols[start:end])
	}
	return chunks
}
