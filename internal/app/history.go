package app

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"go.uber.org/fx"

	gormAdapter "github.com/tigerroll/querymetrics/pkg/batch/adapter/database/gorm"
	config "github.com/tigerroll/querymetrics/pkg/batch/core/config"
	coreModel "github.com/tigerroll/querymetrics/pkg/batch/core/domain/model"
	coreRepository "github.com/tigerroll/querymetrics/pkg/batch/core/domain/repository"
	runRepository "github.com/tigerroll/querymetrics/pkg/batch/infrastructure/repository"
	"github.com/tigerroll/querymetrics/pkg/batch/support/util/logger"
)

// PrintHistory writes the most recent runs recorded in the run-history store.
// It builds only the configuration and database part of the graph.
func PrintHistory(ctx context.Context, w io.Writer, opts Options, mode string, limit int) error {
	var (
		cfg  *config.Config
		runs coreRepository.RunRepository
	)
	app := fx.New(
		fx.Supply(
			opts.EmbeddedConfig,
			fx.Annotate(opts.EnvFilePath, fx.ResultTags(`name:"envFilePath"`)),
		),
		fx.Options(opts.DBProviderOptions...),
		logger.Module,
		config.Module,
		gormAdapter.Module,
		runRepository.Module,
		fx.Populate(&cfg, &runs),
	)
	if err := app.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := app.Stop(context.Background()); err != nil {
			logger.Warnf("Failed to stop history lookup: %v", err)
		}
	}()

	if !cfg.QueryMetrics.History.Enabled {
		_, err := fmt.Fprintln(w, "Run history is disabled (querymetrics.history.enabled).")
		return err
	}
	found, err := runs.FindRecentRunExecutions(ctx, mode, limit)
	if err != nil {
		return err
	}
	total, err := runs.CountRunExecutions(ctx, mode)
	if err != nil {
		return err
	}
	return writeHistory(w, found, total)
}

// writeHistory prints runs as a table followed by a "shown of total" footer.
func writeHistory(w io.Writer, runs []*coreModel.RunExecution, total int64) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tMODE\tSTATUS\tWRITTEN\tPAGES\tMARKER\tRETRY\tFAILED GROUPS\tDURATION\tID")
	for _, r := range runs {
		marker := r.MarkerBefore
		if r.MarkerAdvanced {
			marker = r.MarkerBefore + " -> " + r.MarkerAfter
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\t%d\t%d\t%s\t%s\n",
			r.StartTime.UTC().Format(time.RFC3339), r.Mode, r.Status, r.RecordsWritten, r.Pages,
			marker, r.RetryRemaining, r.FailedGroups, r.Duration().Round(time.Millisecond), r.ID)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Showing %d of %d runs.\n", len(runs), total)
	return err
}
