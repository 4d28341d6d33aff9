// Package repository selects the run-history store from configuration.
package repository

import (
	"go.uber.org/fx"

	"github.com/tigerroll/querymetrics/pkg/batch/adapter/database"
	config "github.com/tigerroll/querymetrics/pkg/batch/core/config"
	domainRepository "github.com/tigerroll/querymetrics/pkg/batch/core/domain/repository"
	"github.com/tigerroll/querymetrics/pkg/batch/infrastructure/repository/inmemory"
	"github.com/tigerroll/querymetrics/pkg/batch/infrastructure/repository/sql"
	"github.com/tigerroll/querymetrics/pkg/batch/support/util/logger"
)

// NewRunRepository returns the SQL repository when history is enabled and the
// in-memory one otherwise.
func NewRunRepository(cfg *config.Config, resolver database.DBConnectionResolver) domainRepository.RunRepository {
	h := cfg.QueryMetrics.History
	if !h.Enabled {
		return inmemory.NewInMemoryRunRepository()
	}
	logger.Debugf("Run history is stored in database connection '%s'.", h.DBRef)
	return sql.NewSQLRunRepository(resolver, h.DBRef)
}

// Module provides the RunRepository.
var Module = fx.Options(
	fx.Provide(NewRunRepository),
)
