package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Sudhamsh17/equal-weighted-index-100/internal/contracts"
	"github.com/Sudhamsh17/equal-weighted-index-100/internal/index"
	"github.com/Sudhamsh17/equal-weighted-index-100/pkg/logger"
)

// DailyComputeJob runs the index pipeline for the most recent trading day.
// Resolving the date through the provider calendar means a run shortly after
// midnight still computes the session that just closed.
type DailyComputeJob struct {
	engine    *index.Engine
	market    contracts.MarketData
	refTicker string
	logger    *logger.Logger
}

// NewDailyComputeJob creates a new daily compute job
func NewDailyComputeJob(engine *index.Engine, market contracts.MarketData, refTicker string, log *logger.Logger) *DailyComputeJob {
	return &DailyComputeJob{
		engine:    engine,
		market:    market,
		refTicker: refTicker,
		logger:    log,
	}
}

// Name returns the job name
func (j *DailyComputeJob) Name() string {
	return "daily_index_compute"
}

// Schedule returns the cron schedule (weekdays at 6 PM, after US close)
func (j *DailyComputeJob) Schedule() string {
	return "0 0 18 * * MON-FRI"
}

// Run executes the daily index computation
func (j *DailyComputeJob) Run(ctx context.Context) error {
	today := time.Now().UTC().Truncate(24 * time.Hour)

	// Previous trading date strictly before tomorrow: today when the market
	// was open, otherwise the last session.
	date, err := j.market.PreviousTradingDate(ctx, j.refTicker, today.AddDate(0, 0, 1))
	if err != nil {
		if errors.Is(err, contracts.ErrNoPreviousTradingDate) {
			j.logger.Warn("No recent trading day found, nothing to compute")
			return nil
		}
		return fmt.Errorf("resolve trading date: %w", err)
	}

	result, err := j.engine.ComputeDay(ctx, date, false)
	if err != nil {
		return fmt.Errorf("compute index for %s: %w", date.Format(contracts.DateFormat), err)
	}

	j.logger.WithFields(map[string]interface{}{
		"date":        date.Format(contracts.DateFormat),
		"index_value": result.IndexValue,
		"rebalanced":  result.Rebalanced,
	}).Info("Scheduled index computation completed")
	return nil
}
