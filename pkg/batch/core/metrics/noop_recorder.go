package metrics

import (
	"context"
	"time"
)

// NoOpMetricRecorder is an implementation of MetricRecorder that does nothing.
// It is used when metrics are disabled or during testing.
type NoOpMetricRecorder struct{}

// NewNoOpMetricRecorder creates a new instance of NoOpMetricRecorder.
func NewNoOpMetricRecorder() MetricRecorder {
	return &NoOpMetricRecorder{}
}

func (r *NoOpMetricRecorder) RecordRunStart(ctx context.Context, mode string) {}
func (r *NoOpMetricRecorder) RecordRunEnd(ctx context.Context, mode, status string, duration time.Duration) {
}
func (r *NoOpMetricRecorder) RecordPage(ctx context.Context, mode string, ids int) {}
func (r *NoOpMetricRecorder) RecordClassified(ctx context.Context, mode string, terminal, nonTerminal, dropped int) {
}
func (r *NoOpMetricRecorder) RecordRejected(ctx context.Context, mode string, count int) {}
func (r *NoOpMetricRecorder) RecordWrite(ctx context.Context, mode string, records, failedGroups int) {
}
func (r *NoOpMetricRecorder) RecordMarkerAdvanced(ctx context.Context)           {}
func (r *NoOpMetricRecorder) RecordRetryQueueSize(ctx context.Context, size int) {}
func (r *NoOpMetricRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
}
func (r *NoOpMetricRecorder) Flush(ctx context.Context) error { return nil }

var _ MetricRecorder = (*NoOpMetricRecorder)(nil)

// --- NoOpTracer ---

// NoOpTracer is an implementation of Tracer that does nothing.
type NoOpTracer struct{}

// NewNoOpTracer creates a new instance of NoOpTracer.
func NewNoOpTracer() Tracer {
	return &NoOpTracer{}
}

func (t *NoOpTracer) StartRunSpan(ctx context.Context, mode, runID string) (context.Context, func()) {
	return ctx, func() {}
}

func (t *NoOpTracer) StartSpan(ctx context.Context, name string, attributes map[string]interface{}) (context.Context, func()) {
	return ctx, func() {}
}

func (t *NoOpTracer) RecordError(ctx context.Context, module string, err error) {}

func (t *NoOpTracer) RecordEvent(ctx context.Context, name string, attributes map[string]interface{}) {
}

func (t *NoOpTracer) Shutdown(ctx context.Context) error { return nil }

var _ Tracer = (*NoOpTracer)(nil)
