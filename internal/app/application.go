// Package app assembles the querymetrics Fx graph and runs one of the harvest
// modes, or the scheduler that triggers both.
package app

import (
	"context"

	"go.uber.org/fx"

	"github.com/tigerroll/querymetrics/internal/job"
	cursorRepository "github.com/tigerroll/querymetrics/internal/repository"
	"github.com/tigerroll/querymetrics/internal/step/reader"
	"github.com/tigerroll/querymetrics/internal/step/writer"
	gormAdapter "github.com/tigerroll/querymetrics/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/querymetrics/pkg/batch/adapter/storage"
	"github.com/tigerroll/querymetrics/pkg/batch/adapter/storage/azblob"
	"github.com/tigerroll/querymetrics/pkg/batch/adapter/storage/gcs"
	"github.com/tigerroll/querymetrics/pkg/batch/adapter/storage/local"
	"github.com/tigerroll/querymetrics/pkg/batch/adapter/storage/minio"
	"github.com/tigerroll/querymetrics/pkg/batch/adapter/storage/s3"
	config "github.com/tigerroll/querymetrics/pkg/batch/core/config"
	metricsInfra "github.com/tigerroll/querymetrics/pkg/batch/infrastructure/metrics"
	runRepository "github.com/tigerroll/querymetrics/pkg/batch/infrastructure/repository"
	"github.com/tigerroll/querymetrics/pkg/batch/support/util/logger"
)

// Options carries what the entrypoint resolved before the graph is built.
type Options struct {
	// Mode is "harvest", "retry" or "schedule".
	Mode           string
	EnvFilePath    string
	EmbeddedConfig config.EmbeddedConfig
	// DBProviderOptions registers the run-history database providers.
	DBProviderOptions []fx.Option
}

// RunApplication builds the Fx graph, runs the selected mode and returns the
// process exit code.
func RunApplication(appCtx context.Context, opts Options) int {
	app := fx.New(
		fx.Supply(
			opts.EmbeddedConfig,
			fx.Annotate(opts.EnvFilePath, fx.ResultTags(`name:"envFilePath"`)),
			fx.Annotate(
				appCtx,
				fx.As(new(context.Context)),
				fx.ResultTags(`name:"appCtx"`),
			),
			RunMode(opts.Mode),
		),
		fx.Options(opts.DBProviderOptions...),
		logger.Module,
		config.Module,
		metricsInfra.Module,

		storage.Module,
		local.Module,
		s3.Module,
		minio.Module,
		gcs.Module,
		azblob.Module,

		gormAdapter.Module,
		runRepository.Module,

		reader.Module,
		writer.Module,
		cursorRepository.Module,
		job.Module,
		Module,
	)

	startCtx, cancelStart := context.WithTimeout(appCtx, app.StartTimeout())
	defer cancelStart()
	if err := app.Start(startCtx); err != nil {
		logger.Errorf("Application start failed: %v", err)
		return 1
	}

	done := <-app.Wait()

	stopCtx, cancelStop := context.WithTimeout(context.Background(), app.StopTimeout())
	defer cancelStop()
	if err := app.Stop(stopCtx); err != nil {
		logger.Errorf("Application stop failed: %v", err)
	}
	_ = logger.Sync()
	return done.ExitCode
}
