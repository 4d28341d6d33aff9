package metrics

import (
	"context"

	"go.uber.org/fx"

	coreConfig "github.com/tigerroll/querymetrics/pkg/batch/core/config"
	metrics "github.com/tigerroll/querymetrics/pkg/batch/core/metrics"
	logger "github.com/tigerroll/querymetrics/pkg/batch/support/util/logger"
)

// NewMetricRecorder provides the Prometheus recorder when metrics are enabled
// and NoOpMetricRecorder otherwise.
func NewMetricRecorder(cfg *coreConfig.Config) metrics.MetricRecorder {
	m := cfg.QueryMetrics.Metrics
	if !m.Enabled {
		return metrics.NewNoOpMetricRecorder()
	}
	return NewPrometheusRecorder(m.PushGatewayURL, m.JobName)
}

// NewTracer provides the OpenTelemetry tracer when tracing is enabled and
// NoOpTracer otherwise. Pending spans are flushed on stop.
func NewTracer(lc fx.Lifecycle, cfg *coreConfig.Config) (metrics.Tracer, error) {
	t := cfg.QueryMetrics.Tracing
	if !t.Enabled {
		return metrics.NewNoOpTracer(), nil
	}
	tracer, err := NewOpenTelemetryTracer(context.Background(), t)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			if err := tracer.Shutdown(ctx); err != nil {
				logger.Warnf("Tracing: shutdown failed: %v", err)
			}
			return nil
		},
	})
	return tracer, nil
}

// Module is an Fx module that provides the MetricRecorder and Tracer selected by configuration.
var Module = fx.Options(
	fx.Provide(NewMetricRecorder),
	fx.Provide(NewTracer),
)
