package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/fx"

	"github.com/tigerroll/querymetrics/internal/job"
	config "github.com/tigerroll/querymetrics/pkg/batch/core/config"
	"github.com/tigerroll/querymetrics/pkg/batch/core/metrics"
	"github.com/tigerroll/querymetrics/pkg/batch/support/util/exception"
	"github.com/tigerroll/querymetrics/pkg/batch/support/util/logger"
)

// cronParser accepts standard 5-field expressions and descriptors like @hourly.
var cronParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Scheduler triggers the harvest and retry modes on cron specs. Both modes share
// one mutex, so a trigger waits for the other mode's run to finish.
type Scheduler struct {
	cron   *cron.Cron
	runner ModeRunner
	specs  map[string]string
	mu     sync.Mutex
}

// SchedulerParams defines the dependencies for NewSchedulerFromParams.
type SchedulerParams struct {
	fx.In
	Config    *config.Config
	Harvester *job.Harvester
}

// NewSchedulerFromParams is the Fx constructor for Scheduler.
func NewSchedulerFromParams(p SchedulerParams) (*Scheduler, error) {
	qm := p.Config.QueryMetrics
	return NewScheduler(p.Harvester, qm.System.Timezone, map[string]string{
		metrics.ModeHarvest: qm.Harvest.Schedule.Harvest,
		metrics.ModeRetry:   qm.Harvest.Schedule.Retry,
	})
}

// NewScheduler creates a Scheduler whose specs are interpreted in timezone.
// A mode with an empty spec is not scheduled.
func NewScheduler(runner ModeRunner, timezone string, specs map[string]string) (*Scheduler, error) {
	loc := time.UTC
	if timezone != "" {
		l, err := time.LoadLocation(timezone)
		if err != nil {
			return nil, exception.NewBatchErrorf("scheduler", "unknown timezone '%s'", timezone, exception.ErrConfiguration)
		}
		loc = l
	}
	for mode, spec := range specs {
		if spec == "" {
			continue
		}
		if _, err := cronParser.Parse(spec); err != nil {
			return nil, exception.NewBatchErrorf("scheduler", "invalid %s schedule '%s': %v", mode, spec, err, exception.ErrConfiguration)
		}
	}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithParser(cronParser),
		cron.WithChain(cron.Recover(cronLogger{})),
	)
	return &Scheduler{cron: c, runner: runner, specs: specs}, nil
}

// Start registers the configured modes and starts the cron loop. Runs use ctx,
// so cancelling it aborts a run in progress.
func (s *Scheduler) Start(ctx context.Context) error {
	scheduled := 0
	for _, mode := range []string{metrics.ModeHarvest, metrics.ModeRetry} {
		spec := s.specs[mode]
		if spec == "" {
			continue
		}
		mode := mode
		if _, err := s.cron.AddFunc(spec, func() { s.Trigger(ctx, mode) }); err != nil {
			return fmt.Errorf("schedule %s: %w", mode, err)
		}
		scheduled++
		logger.Infof("Scheduled %s run: %s", mode, spec)
	}
	if scheduled == 0 {
		return exception.NewBatchError("scheduler", "no schedule configured", exception.ErrConfiguration, false, false)
	}
	s.cron.Start()
	logger.Infof("Scheduler started.")
	return nil
}

// Stop stops the cron loop and waits for a running trigger to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	logger.Infof("Scheduler stopped.")
}

// Trigger runs mode unless ctx is already done. Concurrent triggers run one at a time.
func (s *Scheduler) Trigger(ctx context.Context, mode string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ctx.Err() != nil {
		return
	}
	RunOnce(ctx, s.runner, mode)
}

// cronLogger routes cron's own messages through the application logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Debugf("cron: %s %v", msg, keysAndValues)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.Errorf("cron: %s %v: %v", msg, keysAndValues, err)
}
