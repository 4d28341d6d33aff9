package metrics

import (
	"context"
	"time"
)

// Run modes reported as the "mode" label.
const (
	ModeHarvest = "harvest"
	ModeRetry   = "retry"
)

// Run outcomes reported as the "status" label.
const (
	StatusCompleted = "completed"
	StatusNoWork    = "no_work"
	StatusFailed    = "failed"
)

// MetricRecorder is an abstract interface for recording harvest metrics.
//
// This facilitates integration with different metrics backends (e.g., Prometheus).
type MetricRecorder interface {
	// RecordRunStart records the start of a harvest or retry run.
	RecordRunStart(ctx context.Context, mode string)

	// RecordRunEnd records the outcome and duration of a run.
	RecordRunEnd(ctx context.Context, mode, status string, duration time.Duration)

	// RecordPage records one page of execution ids listed by the query service.
	RecordPage(ctx context.Context, mode string, ids int)

	// RecordClassified records how fetched executions were classified.
	//
	// dropped counts FAILED and unknown statuses.
	RecordClassified(ctx context.Context, mode string, terminal, nonTerminal, dropped int)

	// RecordRejected records executions skipped because they failed record validation.
	RecordRejected(ctx context.Context, mode string, count int)

	// RecordWrite records records written and billing-period groups that failed to upload.
	RecordWrite(ctx context.Context, mode string, records, failedGroups int)

	// RecordMarkerAdvanced records that the marker moved forward.
	RecordMarkerAdvanced(ctx context.Context)

	// RecordRetryQueueSize records the number of ids stored in the retry queue.
	RecordRetryQueueSize(ctx context.Context, size int)

	// RecordDuration records the execution time of a specific operation.
	//
	// name: e.g. "list_page", "fetch_details", "upload".
	// tags: additional labels; only "mode" is kept by the Prometheus recorder.
	RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string)

	// Flush publishes buffered metrics, if the backend needs it (e.g. a push gateway).
	Flush(ctx context.Context) error
}
