package reader

import (
	"context"

	"go.uber.org/fx"

	config "github.com/tigerroll/querymetrics/pkg/batch/core/config"
	"github.com/tigerroll/querymetrics/pkg/batch/support/util/logger"
)

// NewExecutionSource builds the Athena-backed ExecutionSource from configuration.
func NewExecutionSource(cfg *config.Config) (ExecutionSource, error) {
	a := cfg.QueryMetrics.Athena
	client, err := NewAthenaClient(context.Background(), a)
	if err != nil {
		return nil, err
	}
	logger.Debugf("Athena execution source created (region: %s, workgroup: %s).", a.Region, a.WorkGroup)
	return NewAthenaExecutionSource(client, a.WorkGroup, a.MaxResults), nil
}

// Module provides the ExecutionSource.
var Module = fx.Options(
	fx.Provide(NewExecutionSource),
)
