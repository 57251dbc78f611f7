package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Sudhamsh17/equal-weighted-index-100/internal/scheduler"
	"github.com/Sudhamsh17/equal-weighted-index-100/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Run the job scheduler",
	Long: `Starts the cron scheduler with the standing jobs:

  daily_index_compute   weekdays at 6 PM, computes today's index value
  fundamentals_refresh  Saturdays at 6 AM, refreshes shares outstanding

Example:
  go run ./cmd/index100 scheduler`,
	RunE: runScheduler,
}

func init() {
	rootCmd.AddCommand(schedulerCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.close()

	sched := scheduler.New(rt.logger)

	if err := sched.AddJob(jobs.NewDailyComputeJob(rt.engine, rt.market, rt.cfg.Index.ReferenceTicker, rt.logger)); err != nil {
		return err
	}
	if err := sched.AddJob(jobs.NewFundamentalsRefreshJob(rt.engine, rt.universe, rt.logger)); err != nil {
		return err
	}

	sched.Start()
	rt.logger.Info("Scheduler running, press Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	sched.Stop()
	return nil
}
