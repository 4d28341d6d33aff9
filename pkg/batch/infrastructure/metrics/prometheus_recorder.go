package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/push"

	metrics "github.com/tigerroll/querymetrics/pkg/batch/core/metrics"
	logger "github.com/tigerroll/querymetrics/pkg/batch/support/util/logger"
)

// PrometheusRecorder is a Prometheus implementation of the metrics.MetricRecorder interface.
// Runs are short-lived, so metrics are delivered by Flush to a push gateway when one is configured.
type PrometheusRecorder struct {
	registry *prometheus.Registry
	pusher   *push.Pusher

	// Run Metrics
	runDurationSeconds *prometheus.HistogramVec
	runStatusCounter   *prometheus.CounterVec
	runInProgress      *prometheus.GaugeVec

	// Harvest Metrics
	pagesListed              *prometheus.CounterVec
	idsListed                *prometheus.CounterVec
	executionsByClass        *prometheus.CounterVec
	recordsWritten           *prometheus.CounterVec
	groupsFailed             *prometheus.CounterVec
	markerAdvanced           prometheus.Counter
	retryQueueSize           prometheus.Gauge
	operationDurationSeconds *prometheus.HistogramVec
}

// NewPrometheusRecorder creates a new instance of PrometheusRecorder.
// An empty pushGatewayURL disables pushing; Flush is then a no-op.
func NewPrometheusRecorder(pushGatewayURL, jobName string) *PrometheusRecorder {
	registry := prometheus.NewRegistry()

	// Register Go standard metrics and process/OS metrics.
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &PrometheusRecorder{
		registry: registry,
		runDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "querymetrics_run_duration_seconds",
			Help:    "Duration of harvest and retry runs.",
			Buckets: prometheus.DefBuckets,
		}, []string{"mode", "status"}),
		runStatusCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "querymetrics_run_total",
			Help: "Total number of runs by mode and outcome.",
		}, []string{"mode", "status"}),
		runInProgress: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "querymetrics_run_in_progress",
			Help: "Runs currently executing.",
		}, []string{"mode"}),
		pagesListed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "querymetrics_pages_listed_total",
			Help: "Pages of execution ids listed.",
		}, []string{"mode"}),
		idsListed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "querymetrics_ids_listed_total",
			Help: "Execution ids listed.",
		}, []string{"mode"}),
		executionsByClass: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "querymetrics_executions_total",
			Help: "Fetched executions by classification.",
		}, []string{"mode", "class"}), // class: terminal, non_terminal, dropped, rejected
		recordsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "querymetrics_records_written_total",
			Help: "Records written to batch files.",
		}, []string{"mode"}),
		groupsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "querymetrics_groups_failed_total",
			Help: "Billing-period groups whose upload failed.",
		}, []string{"mode"}),
		markerAdvanced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "querymetrics_marker_advanced_total",
			Help: "Number of times the marker moved forward.",
		}),
		retryQueueSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "querymetrics_retry_queue_size",
			Help: "Ids held in the retry queue after the last write.",
		}),
		operationDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "querymetrics_operation_duration_seconds",
			Help:    "Duration of individual service and store calls.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation", "mode"}),
	}

	// Register all metrics with the registry.
	registry.MustRegister(r.runDurationSeconds)
	registry.MustRegister(r.runStatusCounter)
	registry.MustRegister(r.runInProgress)
	registry.MustRegister(r.pagesListed)
	registry.MustRegister(r.idsListed)
	registry.MustRegister(r.executionsByClass)
	registry.MustRegister(r.recordsWritten)
	registry.MustRegister(r.groupsFailed)
	registry.MustRegister(r.markerAdvanced)
	registry.MustRegister(r.retryQueueSize)
	registry.MustRegister(r.operationDurationSeconds)

	if pushGatewayURL != "" {
		r.pusher = push.New(pushGatewayURL, jobName).Gatherer(registry)
	}
	return r
}

// GetRegistry returns the Prometheus registry.
func (r *PrometheusRecorder) GetRegistry() *prometheus.Registry {
	return r.registry
}

func (r *PrometheusRecorder) RecordRunStart(ctx context.Context, mode string) {
	r.runInProgress.WithLabelValues(mode).Inc()
	logger.Debugf("Metrics: %s run started.", mode)
}

func (r *PrometheusRecorder) RecordRunEnd(ctx context.Context, mode, status string, duration time.Duration) {
	r.runInProgress.WithLabelValues(mode).Dec()
	r.runStatusCounter.WithLabelValues(mode, status).Inc()
	r.runDurationSeconds.WithLabelValues(mode, status).Observe(duration.Seconds())
	logger.Debugf("Metrics: %s run ended with status %s. Duration: %.3fs", mode, status, duration.Seconds())
}

func (r *PrometheusRecorder) RecordPage(ctx context.Context, mode string, ids int) {
	r.pagesListed.WithLabelValues(mode).Inc()
	r.idsListed.WithLabelValues(mode).Add(float64(ids))
}

func (r *PrometheusRecorder) RecordClassified(ctx context.Context, mode string, terminal, nonTerminal, dropped int) {
	r.executionsByClass.WithLabelValues(mode, "terminal").Add(float64(terminal))
	r.executionsByClass.WithLabelValues(mode, "non_terminal").Add(float64(nonTerminal))
	r.executionsByClass.WithLabelValues(mode, "dropped").Add(float64(dropped))
}

func (r *PrometheusRecorder) RecordRejected(ctx context.Context, mode string, count int) {
	r.executionsByClass.WithLabelValues(mode, "rejected").Add(float64(count))
}

func (r *PrometheusRecorder) RecordWrite(ctx context.Context, mode string, records, failedGroups int) {
	r.recordsWritten.WithLabelValues(mode).Add(float64(records))
	r.groupsFailed.WithLabelValues(mode).Add(float64(failedGroups))
}

func (r *PrometheusRecorder) RecordMarkerAdvanced(ctx context.Context) {
	r.markerAdvanced.Inc()
}

func (r *PrometheusRecorder) RecordRetryQueueSize(ctx context.Context, size int) {
	r.retryQueueSize.Set(float64(size))
}

func (r *PrometheusRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
	r.operationDurationSeconds.WithLabelValues(name, tags["mode"]).Observe(duration.Seconds())
}

// Flush pushes the registry to the configured gateway, replacing the job's previous group.
func (r *PrometheusRecorder) Flush(ctx context.Context) error {
	if r.pusher == nil {
		return nil
	}
	if err := r.pusher.PushContext(ctx); err != nil {
		logger.Warnf("Metrics: push to gateway failed: %v", err)
		return err
	}
	logger.Debugf("Metrics: pushed to gateway.")
	return nil
}

var _ metrics.MetricRecorder = (*PrometheusRecorder)(nil)
