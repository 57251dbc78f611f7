package index

import (
	"context"
	"fmt"
	"sync"

	"github.com/Sudhamsh17/equal-weighted-index-100/internal/contracts"
)

// refreshResult carries one ticker's fundamentals fetch outcome.
type refreshResult struct {
	ticker       string
	observations []contracts.SharesObservation
	err          error
}

// RefreshFundamentals fetches quarterly shares-outstanding history for every
// ticker with a bounded worker pool, then writes all observations in one
// batched upsert from the calling goroutine. Per-ticker failures are logged
// and skipped; they never abort the batch.
func (e *Engine) RefreshFundamentals(ctx context.Context, tickers []string) error {
	workers := e.cfg.RefreshWorkers
	if workers <= 0 {
		workers = 1
	}

	e.logger.WithFields(map[string]interface{}{
		"tickers": len(tickers),
		"workers": workers,
	}).Info("Refreshing quarterly shares")

	tickerCh := make(chan string, len(tickers))
	resultCh := make(chan refreshResult, len(tickers))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.refreshWorker(ctx, tickerCh, resultCh)
		}()
	}

	for _, ticker := range tickers {
		tickerCh <- ticker
	}
	close(tickerCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	// Collect in the calling goroutine; the store sees a single writer.
	var rows []contracts.SharesObservation
	failed := 0
	for result := range resultCh {
		if result.err != nil {
			failed++
			e.logger.WithError(result.err).WithField("ticker", result.ticker).
				Warn("Failed to fetch quarterly shares")
			continue
		}
		if len(result.observations) == 0 {
			e.logger.WithField("ticker", result.ticker).
				Warn("No shares-outstanding data available")
			continue
		}
		rows = append(rows, result.observations...)
	}

	if len(rows) > 0 {
		if err := e.store.UpsertQuarterlyShares(ctx, rows); err != nil {
			return fmt.Errorf("persist quarterly shares: %w", err)
		}
	}

	e.logger.WithFields(map[string]interface{}{
		"observations": len(rows),
		"failed":       failed,
	}).Info("Quarterly shares refresh completed")

	return nil
}

// refreshWorker drains the ticker channel until it closes or the context is
// canceled.
func (e *Engine) refreshWorker(ctx context.Context, tickerCh <-chan string, resultCh chan<- refreshResult) {
	for ticker := range tickerCh {
		select {
		case <-ctx.Done():
			resultCh <- refreshResult{ticker: ticker, err: ctx.Err()}
			return
		default:
		}

		observations, err := e.market.FetchQuarterlyShares(ctx, ticker)
		resultCh <- refreshResult{ticker: ticker, observations: observations, err: err}
	}
}
