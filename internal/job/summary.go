package job

import (
	"fmt"
	"time"

	"github.com/tigerroll/querymetrics/internal/step/writer"
	coreModel "github.com/tigerroll/querymetrics/pkg/batch/core/domain/model"
	"github.com/tigerroll/querymetrics/pkg/batch/core/metrics"
)

// RunSummary describes the outcome of one harvest or retry run.
type RunSummary struct {
	RunID  string
	Mode   string
	Status coreModel.RunStatus
	// WriteResult accumulates every batch write of the run.
	writer.WriteResult
	MarkerBefore   string
	MarkerAfter    string
	MarkerAdvanced bool
	// RetryMerged counts in-flight ids added to the retry queue (harvest mode).
	RetryMerged int
	// RetryRemaining is the retry queue size after the run.
	RetryRemaining int
	// Rejected counts executions skipped because they failed record validation.
	Rejected int
	// Pages counts listing pages in harvest mode and fetch chunks in retry mode.
	Pages    int
	Duration time.Duration

	noWork bool
}

// String renders the summary as one log line.
func (s RunSummary) String() string {
	return fmt.Sprintf("mode=%s status=%s written=%d pages=%d marker=%q->%q advanced=%t retry_merged=%d retry_remaining=%d rejected=%d failed_groups=%d duration=%s",
		s.Mode, s.Status, s.RecordsWritten, s.Pages, s.MarkerBefore, s.MarkerAfter, s.MarkerAdvanced,
		s.RetryMerged, s.RetryRemaining, s.Rejected, len(s.FailedGroups), s.Duration)
}

// FailedKeys returns the object keys of the groups that could not be stored.
func (s RunSummary) FailedKeys() []string {
	keys := make([]string, len(s.FailedGroups))
	for i, g := range s.FailedGroups {
		keys[i] = g.Key
	}
	return keys
}

func (s *RunSummary) finish(err error) {
	switch {
	case err != nil:
		s.Status = coreModel.RunStatusFailed
	case s.noWork:
		s.Status = coreModel.RunStatusNoWork
	default:
		s.Status = coreModel.RunStatusCompleted
	}
}

// metricStatus maps a run status to the "status" label.
func metricStatus(status coreModel.RunStatus) string {
	switch status {
	case coreModel.RunStatusNoWork:
		return metrics.StatusNoWork
	case coreModel.RunStatusFailed:
		return metrics.StatusFailed
	default:
		return metrics.StatusCompleted
	}
}

// applyTo copies the summary onto the persisted run record.
func (s RunSummary) applyTo(run *coreModel.RunExecution) {
	run.RecordsWritten = s.RecordsWritten
	run.Pages = s.Pages
	run.MarkerBefore = s.MarkerBefore
	run.MarkerAfter = s.MarkerAfter
	run.MarkerAdvanced = s.MarkerAdvanced
	run.RetryMerged = s.RetryMerged
	run.RetryRemaining = s.RetryRemaining
	run.FailedGroups = len(s.FailedGroups)
	run.Failures = append(run.Failures, s.FailedKeys()...)
}
