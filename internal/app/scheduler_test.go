package app

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/querymetrics/internal/job"
	"github.com/tigerroll/querymetrics/internal/step/writer"
	"github.com/tigerroll/querymetrics/pkg/batch/core/metrics"
	"github.com/tigerroll/querymetrics/pkg/batch/support/util/exception"
)

type fakeRunner struct {
	active    int32
	maxActive int32
	calls     int32
	summary   job.RunSummary
	err       error
	delay     time.Duration
}

func (f *fakeRunner) Run(ctx context.Context, mode string) (job.RunSummary, error) {
	n := atomic.AddInt32(&f.active, 1)
	defer atomic.AddInt32(&f.active, -1)
	for {
		m := atomic.LoadInt32(&f.maxActive)
		if n <= m || atomic.CompareAndSwapInt32(&f.maxActive, m, n) {
			break
		}
	}
	atomic.AddInt32(&f.calls, 1)
	time.Sleep(f.delay)
	s := f.summary
	s.Mode = mode
	return s, f.err
}

func TestScheduler_TriggersNeverOverlap(t *testing.T) {
	runner := &fakeRunner{delay: 20 * time.Millisecond}
	s, err := NewScheduler(runner, "UTC", map[string]string{metrics.ModeHarvest: "@hourly"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for _, mode := range []string{metrics.ModeHarvest, metrics.ModeRetry, metrics.ModeHarvest} {
		wg.Add(1)
		go func(mode string) {
			defer wg.Done()
			s.Trigger(context.Background(), mode)
		}(mode)
	}
	wg.Wait()

	assert.Equal(t, int32(3), atomic.LoadInt32(&runner.calls))
	assert.Equal(t, int32(1), atomic.LoadInt32(&runner.maxActive))
}

func TestScheduler_SkipsTriggerAfterCancel(t *testing.T) {
	runner := &fakeRunner{}
	s, err := NewScheduler(runner, "", map[string]string{metrics.ModeRetry: "@hourly"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.Trigger(ctx, metrics.ModeRetry)
	assert.Zero(t, atomic.LoadInt32(&runner.calls))
}

func TestNewScheduler_RejectsBadSettings(t *testing.T) {
	_, err := NewScheduler(&fakeRunner{}, "Mars/Olympus", map[string]string{metrics.ModeHarvest: "@hourly"})
	assert.ErrorIs(t, err, exception.ErrConfiguration)

	_, err = NewScheduler(&fakeRunner{}, "Asia/Tokyo", map[string]string{metrics.ModeHarvest: "every now and then"})
	assert.ErrorIs(t, err, exception.ErrConfiguration)
}

func TestScheduler_StartWithoutSpecs(t *testing.T) {
	s, err := NewScheduler(&fakeRunner{}, "UTC", map[string]string{metrics.ModeHarvest: "", metrics.ModeRetry: ""})
	require.NoError(t, err)
	assert.ErrorIs(t, s.Start(context.Background()), exception.ErrConfiguration)
}

func TestScheduler_StartAndStop(t *testing.T) {
	s, err := NewScheduler(&fakeRunner{}, "UTC", map[string]string{
		metrics.ModeHarvest: "*/5 * * * *",
		metrics.ModeRetry:   "@every 1h",
	})
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	assert.Len(t, s.cron.Entries(), 2)
	s.Stop()
}

func TestRunOnce_ExitCodes(t *testing.T) {
	assert.Equal(t, 0, RunOnce(context.Background(), &fakeRunner{}, metrics.ModeHarvest))
	assert.Equal(t, 1, RunOnce(context.Background(), &fakeRunner{err: errors.New("list failed")}, metrics.ModeHarvest))

	partial := &fakeRunner{summary: job.RunSummary{
		MarkerAdvanced: true,
		WriteResult: writer.WriteResult{
			FailedGroups: []writer.FailedGroup{{Key: "data/billingperiod=2024-03-01/a_b.csv.gz"}},
		},
	}}
	assert.Equal(t, 0, RunOnce(context.Background(), partial, metrics.ModeHarvest), "failed groups do not change the exit code")
}

func TestDBProviderOptions(t *testing.T) {
	assert.Len(t, DBProviderOptions(""), 3)
	assert.Len(t, DBProviderOptions("sqlite, oracle"), 1)
}
