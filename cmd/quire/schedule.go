package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ternarybob/quire/internal/services/scheduler"
)

const scheduleJobName = "preprocess"

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Re-run preprocessing on a cron schedule",
	Long:  `Keeps running and re-processes the index on the [schedule] cron expression. Cached page images make repeat runs cheap. A trigger that fires while a run is still active is skipped.`,
	RunE:  runSchedule,
}

var (
	scheduleCron string
	scheduleNow  bool
)

func init() {
	scheduleCmd.Flags().StringVar(&scheduleCron, "cron", "", "Cron expression (overrides config)")
	scheduleCmd.Flags().BoolVar(&scheduleNow, "now", false, "Run once immediately as well")
}

func runSchedule(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	expr := config.Schedule.Cron
	if scheduleCron != "" {
		expr = scheduleCron
	}

	svc, runs, err := newPreprocessor()
	if err != nil {
		return err
	}
	defer closeRuns(runs)

	observer := newObserver()
	sched := scheduler.NewService(logger)
	err = sched.RegisterJob(scheduleJobName, expr, func() error {
		run, err := svc.Run(ctx, observer)
		if err != nil {
			return err
		}
		if failed := run.Failed(); failed > 0 {
			return fmt.Errorf("%d of %d rules failed", failed, len(run.Results))
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := sched.Start(); err != nil {
		return err
	}
	if scheduleNow {
		if err := sched.TriggerJob(scheduleJobName); err != nil {
			return err
		}
	}

	if status, err := sched.GetJobStatus(scheduleJobName); err == nil && status.NextRun != nil {
		logger.Info().Str("cron", expr).Str("next_run", status.NextRun.Format("2006-01-02 15:04:05")).Msg("Scheduler ready - Press Ctrl+C to stop")
	}

	<-ctx.Done()
	logger.Info().Msg("Interrupt signal received")

	if err := sched.Stop(); err != nil {
		return err
	}
	if status, err := sched.GetJobStatus(scheduleJobName); err == nil {
		logger.Info().Int("runs", status.Runs).Int("skipped", status.Skipped).Msg("Scheduler stopped")
	}
	return nil
}
