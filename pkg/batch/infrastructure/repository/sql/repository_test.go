package sql

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/querymetrics/pkg/batch/adapter/database"
	gormadapter "github.com/tigerroll/querymetrics/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/querymetrics/pkg/batch/adapter/database/gorm/sqlite"
	config "github.com/tigerroll/querymetrics/pkg/batch/core/config"
	"github.com/tigerroll/querymetrics/pkg/batch/core/domain/model"
	"github.com/tigerroll/querymetrics/pkg/batch/core/domain/repository"
)

func newRepository(t *testing.T) *SQLRunRepository {
	t.Helper()
	cfg := config.NewConfig()
	cfg.QueryMetrics.Database["history"] = map[string]interface{}{
		"type":     "sqlite",
		"database": filepath.Join(t.TempDir(), "history.db"),
	}
	resolver := gormadapter.NewGormDBConnectionResolver(gormadapter.ResolverParams{
		DBProviders: []database.DBProvider{sqlite.NewProvider(cfg)},
		Cfg:         cfg,
	})
	t.Cleanup(func() { _ = resolver.CloseAll() })
	return NewSQLRunRepository(resolver, "history")
}

func TestSQLRunRepository_SaveAndFind(t *testing.T) {
	ctx := context.Background()
	repo := newRepository(t)
	start := time.Date(2024, 3, 17, 10, 0, 0, 0, time.UTC)

	run := model.NewRunExecution("harvest", start)
	run.MarkerBefore = "old"
	require.NoError(t, repo.SaveRunExecution(ctx, run))

	run.RecordsWritten = 120
	run.Pages = 3
	run.MarkerAfter = "new"
	run.MarkerAdvanced = true
	run.FailedGroups = 1
	run.Failures = append(run.Failures, "data/billingperiod=2024-03-01/a_b.csv.gz")
	run.Finish(start.Add(5*time.Second), model.RunStatusCompleted, nil)
	require.NoError(t, repo.SaveRunExecution(ctx, run))

	got, err := repo.FindRunExecution(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusCompleted, got.Status)
	assert.Equal(t, 120, got.RecordsWritten)
	assert.Equal(t, "old", got.MarkerBefore)
	assert.Equal(t, "new", got.MarkerAfter)
	assert.True(t, got.MarkerAdvanced)
	assert.Equal(t, model.FailureList{"data/billingperiod=2024-03-01/a_b.csv.gz"}, got.Failures)
	require.NotNil(t, got.EndTime)
	assert.Equal(t, 5*time.Second, got.Duration())

	_, err = repo.FindRunExecution(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrRunExecutionNotFound)
}

func TestSQLRunRepository_FindRecent(t *testing.T) {
	ctx := context.Background()
	repo := newRepository(t)
	base := time.Date(2024, 3, 17, 10, 0, 0, 0, time.UTC)

	var ids []string
	for i, mode := range []string{"harvest", "retry", "harvest"} {
		run := model.NewRunExecution(mode, base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, repo.SaveRunExecution(ctx, run))
		ids = append(ids, run.ID)
	}

	recent, err := repo.FindRecentRunExecutions(ctx, "", 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, ids[2], recent[0].ID)
	assert.Equal(t, ids[1], recent[1].ID)

	harvests, err := repo.FindRecentRunExecutions(ctx, "harvest", 0)
	require.NoError(t, err)
	require.Len(t, harvests, 2)
	assert.Equal(t, ids[0], harvests[1].ID)

	total, err := repo.CountRunExecutions(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	retries, err := repo.CountRunExecutions(ctx, "retry")
	require.NoError(t, err)
	assert.Equal(t, int64(1), retries)
}
