package metrics

import (
	"context"
)

// Tracer is an abstract interface for distributed tracing.
// This interface provides functionality to integrate with tracing systems like OpenTelemetry,
// enabling visualization of harvest runs and the service calls they make.
type Tracer interface {
	// StartRunSpan starts the root span of a run.
	//
	// Returns: A context with the new Span set, and a function to end the Span.
	//          It is recommended to call the returned function in a defer statement.
	StartRunSpan(ctx context.Context, mode, runID string) (context.Context, func())

	// StartSpan starts a child span for one unit of work (a page, a chunk, an upload).
	StartSpan(ctx context.Context, name string, attributes map[string]interface{}) (context.Context, func())

	// RecordError records an error in the current Span.
	//
	// module: The component where the error occurred (e.g., "reader", "writer", "cursor").
	RecordError(ctx context.Context, module string, err error)

	// RecordEvent records an event in the current Span.
	RecordEvent(ctx context.Context, name string, attributes map[string]interface{})

	// Shutdown flushes pending spans.
	Shutdown(ctx context.Context) error
}
