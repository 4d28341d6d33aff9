package job

import (
	"go.uber.org/fx"

	"github.com/tigerroll/querymetrics/internal/repository"
	"github.com/tigerroll/querymetrics/internal/step/reader"
	"github.com/tigerroll/querymetrics/internal/step/writer"
	config "github.com/tigerroll/querymetrics/pkg/batch/core/config"
	coreRepository "github.com/tigerroll/querymetrics/pkg/batch/core/domain/repository"
	"github.com/tigerroll/querymetrics/pkg/batch/core/metrics"
)

// HarvesterParams defines the dependencies for NewHarvesterFromParams.
type HarvesterParams struct {
	fx.In
	Config   *config.Config
	Source   reader.ExecutionSource
	Cursors  repository.CursorStore
	Writer   writer.BatchWriter
	Runs     coreRepository.RunRepository `optional:"true"`
	Recorder metrics.MetricRecorder       `optional:"true"`
	Tracer   metrics.Tracer               `optional:"true"`
}

// NewHarvesterFromParams is the Fx constructor for Harvester.
func NewHarvesterFromParams(p HarvesterParams) *Harvester {
	return NewHarvester(p.Source, p.Cursors, p.Writer, p.Runs, p.Recorder, p.Tracer,
		p.Config.QueryMetrics.Harvest.BatchSize)
}

// Module provides the Harvester.
var Module = fx.Options(
	fx.Provide(NewHarvesterFromParams),
)
