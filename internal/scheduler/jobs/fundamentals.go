package jobs

import (
	"context"
	"fmt"

	"github.com/Sudhamsh17/equal-weighted-index-100/internal/contracts"
	"github.com/Sudhamsh17/equal-weighted-index-100/internal/index"
	"github.com/Sudhamsh17/equal-weighted-index-100/pkg/logger"
)

// FundamentalsRefreshJob re-fetches quarterly shares outstanding for the
// whole S&P 500 universe. Shares move on quarterly reports, so a weekly
// sweep keeps the cap table fresh without hammering the provider daily.
type FundamentalsRefreshJob struct {
	engine   *index.Engine
	universe contracts.UniverseProvider
	logger   *logger.Logger
}

// NewFundamentalsRefreshJob creates a new fundamentals refresh job
func NewFundamentalsRefreshJob(engine *index.Engine, universe contracts.UniverseProvider, log *logger.Logger) *FundamentalsRefreshJob {
	return &FundamentalsRefreshJob{
		engine:   engine,
		universe: universe,
		logger:   log,
	}
}

// Name returns the job name
func (j *FundamentalsRefreshJob) Name() string {
	return "fundamentals_refresh"
}

// Schedule returns the cron schedule (Saturdays at 6 AM, off market hours)
func (j *FundamentalsRefreshJob) Schedule() string {
	return "0 0 6 * * SAT"
}

// Run executes the fundamentals refresh
func (j *FundamentalsRefreshJob) Run(ctx context.Context) error {
	tickers, err := j.universe.ListConstituents(ctx)
	if err != nil {
		return fmt.Errorf("fetch universe: %w", err)
	}

	if err := j.engine.RefreshFundamentals(ctx, tickers); err != nil {
		return fmt.Errorf("refresh fundamentals: %w", err)
	}

	j.logger.WithField("tickers", len(tickers)).Info("Scheduled fundamentals refresh completed")
	return nil
}
