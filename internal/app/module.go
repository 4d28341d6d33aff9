package app

import (
	"strings"

	"go.uber.org/fx"

	"github.com/tigerroll/querymetrics/pkg/batch/adapter/database/gorm/mysql"
	"github.com/tigerroll/querymetrics/pkg/batch/adapter/database/gorm/postgres"
	"github.com/tigerroll/querymetrics/pkg/batch/adapter/database/gorm/sqlite"
	"github.com/tigerroll/querymetrics/pkg/batch/support/util/logger"
)

// DBProviderModules maps a database type to the module registering its provider.
var DBProviderModules = map[string]fx.Option{
	"postgres": postgres.Module,
	"mysql":    mysql.Module,
	"sqlite":   sqlite.Module,
}

// DBProviderOptions selects database provider modules from a comma-separated list.
// An empty list selects all of them.
func DBProviderOptions(names string) []fx.Option {
	if strings.TrimSpace(names) == "" {
		names = "postgres,mysql,sqlite"
	}
	options := make([]fx.Option, 0)
	for _, name := range strings.Split(names, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if module, ok := DBProviderModules[name]; ok {
			options = append(options, module)
			logger.Debugf("DB Provider '%s' selected and registered.", name)
		} else {
			logger.Warnf("DB Provider '%s' is configured but not recognized/supported. Skipping.", name)
		}
	}
	return options
}

// Module provides the scheduler and starts the runner.
var Module = fx.Options(
	fx.Provide(
		NewSchedulerFromParams,
		fx.Annotate(NewRunner, fx.ParamTags("", "", "", "", `name:"appCtx"`)),
	),
	fx.Invoke(startRunner),
)
