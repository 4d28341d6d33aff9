package app

import (
	"context"

	"go.uber.org/fx"

	"github.com/tigerroll/querymetrics/internal/job"
	"github.com/tigerroll/querymetrics/pkg/batch/core/metrics"
	"github.com/tigerroll/querymetrics/pkg/batch/support/util/logger"
)

// RunMode names what the process does once the graph has started.
type RunMode string

// ModeSchedule keeps the process alive and triggers both run modes on their cron specs.
const ModeSchedule = "schedule"

// ModeRunner runs one harvest mode.
type ModeRunner interface {
	Run(ctx context.Context, mode string) (job.RunSummary, error)
}

// Runner executes the selected mode on start and shuts the application down
// when it is done.
type Runner struct {
	mode       RunMode
	runner     ModeRunner
	scheduler  *Scheduler
	shutdowner fx.Shutdowner
	appCtx     context.Context
}

// NewRunner creates a Runner.
func NewRunner(mode RunMode, harvester *job.Harvester, scheduler *Scheduler, shutdowner fx.Shutdowner, appCtx context.Context) *Runner {
	return &Runner{mode: mode, runner: harvester, scheduler: scheduler, shutdowner: shutdowner, appCtx: appCtx}
}

func startRunner(lc fx.Lifecycle, r *Runner) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go r.run()
			return nil
		},
		OnStop: func(context.Context) error {
			logger.Infof("Application is shutting down.")
			return nil
		},
	})
}

func (r *Runner) run() {
	code := 0
	defer func() {
		if rec := recover(); rec != nil {
			logger.Errorf("Panic recovered in %s: %v", r.mode, rec)
			code = 1
		}
		if err := r.shutdowner.Shutdown(fx.ExitCode(code)); err != nil {
			logger.Errorf("Failed to shutdown application: %v", err)
		}
	}()

	switch string(r.mode) {
	case ModeSchedule:
		code = r.schedule()
	default:
		code = RunOnce(r.appCtx, r.runner, string(r.mode))
	}
}

func (r *Runner) schedule() int {
	if err := r.scheduler.Start(r.appCtx); err != nil {
		logger.Errorf("Failed to start scheduler: %v", err)
		return 1
	}
	<-r.appCtx.Done()
	logger.Warnf("Application context cancelled. Waiting for the running job to finish.")
	r.scheduler.Stop()
	return 0
}

// RunOnce runs mode and maps the outcome to an exit code. Failed upload groups
// are reported but do not change the exit code.
func RunOnce(ctx context.Context, runner ModeRunner, mode string) int {
	summary, err := runner.Run(ctx, mode)
	if err != nil {
		logger.Errorf("The %s run failed: %v", mode, err)
		return 1
	}
	if n := len(summary.FailedGroups); n > 0 {
		logger.Warnf("The %s run finished with %d failed groups: %v", mode, n, summary.FailedKeys())
	}
	if mode == metrics.ModeHarvest && !summary.MarkerAdvanced {
		logger.Infof("No new work.")
	}
	return 0
}
