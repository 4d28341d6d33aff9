// Package job runs the two harvest modes: the main run that walks new query
// executions down to the stored marker, and the retry sweep over in-flight ids.
package job

import (
	"context"
	"time"

	"github.com/tigerroll/querymetrics/internal/domain/model"
	"github.com/tigerroll/querymetrics/internal/repository"
	"github.com/tigerroll/querymetrics/internal/step/processor"
	"github.com/tigerroll/querymetrics/internal/step/reader"
	"github.com/tigerroll/querymetrics/internal/step/writer"
	coreModel "github.com/tigerroll/querymetrics/pkg/batch/core/domain/model"
	coreRepository "github.com/tigerroll/querymetrics/pkg/batch/core/domain/repository"
	"github.com/tigerroll/querymetrics/pkg/batch/core/metrics"
	"github.com/tigerroll/querymetrics/pkg/batch/support/util/exception"
	"github.com/tigerroll/querymetrics/pkg/batch/support/util/logger"
)

const moduleName = "harvester"

// Harvester orchestrates the execution source, the cursor store and the batch writer.
// It does not lock the cursor objects; callers must not run two modes at once
// against the same marker and retry file.
type Harvester struct {
	source    reader.ExecutionSource
	cursors   repository.CursorStore
	writer    writer.BatchWriter
	runs      coreRepository.RunRepository
	recorder  metrics.MetricRecorder
	tracer    metrics.Tracer
	batchSize int
	now       func() time.Time
}

// NewHarvester creates a Harvester. runs may be nil to skip run history; nil
// recorder and tracer fall back to no-op implementations. batchSize is clamped
// to 1..reader.MaxBatchSize.
func NewHarvester(
	source reader.ExecutionSource,
	cursors repository.CursorStore,
	batchWriter writer.BatchWriter,
	runs coreRepository.RunRepository,
	recorder metrics.MetricRecorder,
	tracer metrics.Tracer,
	batchSize int,
) *Harvester {
	if recorder == nil {
		recorder = metrics.NewNoOpMetricRecorder()
	}
	if tracer == nil {
		tracer = metrics.NewNoOpTracer()
	}
	if batchSize <= 0 || batchSize > reader.MaxBatchSize {
		batchSize = reader.MaxBatchSize
	}
	return &Harvester{
		source:    source,
		cursors:   cursors,
		writer:    batchWriter,
		runs:      runs,
		recorder:  recorder,
		tracer:    tracer,
		batchSize: batchSize,
		now:       time.Now,
	}
}

// Harvest processes every execution newer than the stored marker and advances
// the marker to the newest id once the whole listing has been handled.
func (h *Harvester) Harvest(ctx context.Context) (RunSummary, error) {
	return h.run(ctx, metrics.ModeHarvest, h.harvest)
}

// Retry re-fetches the ids in the retry queue, writes the ones that have finished
// and shrinks the queue.
func (h *Harvester) Retry(ctx context.Context) (RunSummary, error) {
	return h.run(ctx, metrics.ModeRetry, h.retry)
}

// Run dispatches to Harvest or Retry by mode name.
func (h *Harvester) Run(ctx context.Context, mode string) (RunSummary, error) {
	switch mode {
	case metrics.ModeHarvest:
		return h.Harvest(ctx)
	case metrics.ModeRetry:
		return h.Retry(ctx)
	}
	return RunSummary{Mode: mode}, exception.NewBatchErrorf(moduleName, "unknown run mode '%s'", mode, exception.ErrInvalidArgument)
}

// run wraps a mode body with run history, tracing and metrics.
func (h *Harvester) run(ctx context.Context, mode string, body func(context.Context, *RunSummary) error) (RunSummary, error) {
	start := h.now()
	exec := coreModel.NewRunExecution(mode, start)

	ctx, endSpan := h.tracer.StartRunSpan(ctx, mode, exec.ID)
	defer endSpan()

	h.recorder.RecordRunStart(ctx, mode)
	h.saveRun(ctx, exec)
	logger.Infof("Starting %s run (ID: %s).", mode, exec.ID)

	summary := RunSummary{RunID: exec.ID, Mode: mode}
	err := body(ctx, &summary)
	summary.Duration = h.now().Sub(start)
	summary.finish(err)

	summary.applyTo(exec)
	exec.Finish(start.Add(summary.Duration), summary.Status, err)

	if err != nil {
		h.tracer.RecordError(ctx, moduleName, err)
		logger.Errorf("%s run (ID: %s) failed: %v", mode, exec.ID, err)
	} else {
		logger.Infof("%s run (ID: %s) finished: %s", mode, exec.ID, summary)
	}

	// Bookkeeping below must survive a cancelled run context.
	bg := context.WithoutCancel(ctx)
	h.recorder.RecordRunEnd(bg, mode, metricStatus(summary.Status), summary.Duration)
	h.saveRun(bg, exec)
	if ferr := h.recorder.Flush(bg); ferr != nil {
		logger.Warnf("Failed to push metrics for run %s: %v", exec.ID, ferr)
	}
	return summary, err
}

func (h *Harvester) saveRun(ctx context.Context, exec *coreModel.RunExecution) {
	if h.runs == nil {
		return
	}
	if err := h.runs.SaveRunExecution(ctx, exec); err != nil {
		logger.Warnf("Failed to save run history for %s: %v", exec.ID, err)
	}
}

func (h *Harvester) harvest(ctx context.Context, s *RunSummary) error {
	marker, err := h.cursors.ReadMarker(ctx)
	if err != nil {
		return err
	}
	s.MarkerBefore = marker
	s.MarkerAfter = marker
	logger.Infof("Previous run last processed query execution id: %s.", marker)

	var newest, token string
	for first := true; ; first = false {
		if err := ctx.Err(); err != nil {
			return err
		}
		page, err := h.listPage(ctx, token)
		if err != nil {
			return err
		}
		s.Pages++
		h.recorder.RecordPage(ctx, s.Mode, len(page.IDs))

		if len(page.IDs) == 0 {
			logger.Warnf("The listing returned no query execution ids.")
			if first {
				s.noWork = true
			}
			break
		}
		if first {
			newest = page.IDs[0]
			if newest == marker {
				logger.Infof("No new query execution ids.")
				s.noWork = true
				return nil
			}
			logger.Infof("The new last processed query execution id will be: %s.", newest)
		}

		ids, reached := truncateAtMarker(page.IDs, marker)
		if err := h.processPage(ctx, s, ids); err != nil {
			return err
		}
		if reached || page.NextToken == "" {
			break
		}
		token = page.NextToken
	}

	logger.Infof("Finished pulling query execution data. Wrote %d records.", s.RecordsWritten)

	if newest == "" || newest == marker {
		logger.Infof("No new work; the marker stays at %s.", marker)
		return nil
	}
	if err := h.cursors.WriteMarker(ctx, newest); err != nil {
		return err
	}
	s.MarkerAfter = newest
	s.MarkerAdvanced = true
	h.recorder.RecordMarkerAdvanced(ctx)
	logger.Infof("Completed updating marker to %s.", newest)
	return nil
}

func (h *Harvester) listPage(ctx context.Context, token string) (reader.Page, error) {
	ctx, end := h.tracer.StartSpan(ctx, "list_page", map[string]interface{}{"continuation": token != ""})
	defer end()
	return h.source.ListPage(ctx, token)
}

// truncateAtMarker returns the ids listed before marker and whether marker was found.
func truncateAtMarker(ids []string, marker string) ([]string, bool) {
	if marker == "" {
		return ids, false
	}
	for i, id := range ids {
		if id == marker {
			return ids[:i], true
		}
	}
	return ids, false
}

// processPage fetches one page's ids, queues the in-flight ones and writes the finished ones.
func (h *Harvester) processPage(ctx context.Context, s *RunSummary, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	records, err := h.fetch(ctx, s, ids)
	if err != nil {
		return err
	}
	terminal, nonTerminal := h.classify(ctx, s.Mode, records)

	if len(nonTerminal) > 0 {
		logger.Infof("Adding %d not finished queries to the retry file.", len(nonTerminal))
		queue, err := h.cursors.MergeRetryIDs(ctx, processor.IDs(nonTerminal))
		if err != nil {
			return err
		}
		s.RetryMerged += len(nonTerminal)
		s.RetryRemaining = len(queue)
		h.recorder.RecordRetryQueueSize(ctx, len(queue))
	}
	return h.write(ctx, s, terminal)
}

// fetch returns the valid records for ids. Executions that fail validation are
// counted and skipped; they are neither written nor queued for retry.
func (h *Harvester) fetch(ctx context.Context, s *RunSummary, ids []string) ([]model.QueryExecutionRecord, error) {
	ctx, end := h.tracer.StartSpan(ctx, "fetch_details", map[string]interface{}{"ids": len(ids)})
	defer end()

	records, err := reader.FetchAll(ctx, h.source, ids, h.batchSize)
	if err != nil {
		if exception.IsFatal(err) {
			return nil, err
		}
		rejected := reader.InvalidRecordIDs(err)
		s.Rejected += len(rejected)
		h.recorder.RecordRejected(ctx, s.Mode, len(rejected))
		h.tracer.RecordError(ctx, moduleName, err)
		logger.Warnf("Skipped %d query executions that failed validation: %v", len(rejected), rejected)
	}
	return records, nil
}

func (h *Harvester) classify(ctx context.Context, mode string, records []model.QueryExecutionRecord) (terminal, nonTerminal []model.QueryExecutionRecord) {
	terminal, nonTerminal = processor.Classify(records)
	dropped := len(records) - len(terminal) - len(nonTerminal)
	if dropped > 0 {
		logger.Debugf("Dropped %d failed query executions out of %d.", dropped, len(records))
	}
	h.recorder.RecordClassified(ctx, mode, len(terminal), len(nonTerminal), dropped)
	return terminal, nonTerminal
}

// write stores terminal records. Group upload failures are kept in the summary
// and do not fail the run; anything else does.
func (h *Harvester) write(ctx context.Context, s *RunSummary, terminal []model.QueryExecutionRecord) error {
	if len(terminal) == 0 {
		logger.Infof("No finished queries in this list.")
		return nil
	}
	ctx, end := h.tracer.StartSpan(ctx, "write_batch", map[string]interface{}{"records": len(terminal)})
	defer end()

	result, err := h.writer.Write(ctx, terminal)
	s.WriteResult.Merge(result)
	h.recorder.RecordWrite(ctx, s.Mode, result.RecordsWritten, len(result.FailedGroups))

	if err != nil {
		if exception.IsFatal(err) {
			return err
		}
		h.tracer.RecordError(ctx, moduleName, err)
		logger.Warnf("%d of %d records were not stored: %v", len(terminal)-result.RecordsWritten, len(terminal), err)
	}
	return nil
}

func (h *Harvester) retry(ctx context.Context, s *RunSummary) error {
	ids, err := h.cursors.ReadRetryIDs(ctx)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		logger.Infof("No ids in the retry file.")
		s.noWork = true
		return nil
	}
	logger.Infof("Retrying %d query execution ids.", len(ids))

	chunks, err := reader.Chunk(ids, h.batchSize)
	if err != nil {
		return err
	}
	var remaining []string
	for _, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.Pages++
		h.recorder.RecordPage(ctx, s.Mode, len(chunk))

		records, err := h.fetch(ctx, s, chunk)
		if err != nil {
			return err
		}
		terminal, nonTerminal := h.classify(ctx, s.Mode, records)
		remaining = append(remaining, processor.IDs(nonTerminal)...)
		if err := h.write(ctx, s, terminal); err != nil {
			return err
		}
	}

	logger.Infof("Finished retrying query executions. Wrote %d records.", s.RecordsWritten)
	s.RetryRemaining = len(remaining)

	if len(remaining) >= len(ids) {
		s.RetryRemaining = len(ids)
		logger.Infof("No updates need to be made to the retry file.")
		return nil
	}
	logger.Infof("Updating retry file.")
	if err := h.cursors.ReplaceRetryIDs(ctx, remaining); err != nil {
		return err
	}
	h.recorder.RecordRetryQueueSize(ctx, len(remaining))
	logger.Infof("Finished updating retry file.")
	return nil
}
