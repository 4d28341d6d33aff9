package inmemory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/querymetrics/pkg/batch/core/domain/model"
	"github.com/tigerroll/querymetrics/pkg/batch/core/domain/repository"
)

func TestInMemoryRunRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryRunRepository()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	first := model.NewRunExecution("harvest", base)
	second := model.NewRunExecution("retry", base.Add(time.Minute))
	third := model.NewRunExecution("harvest", base.Add(2*time.Minute))
	for _, r := range []*model.RunExecution{first, second, third} {
		require.NoError(t, repo.SaveRunExecution(ctx, r))
	}

	third.Finish(base.Add(3*time.Minute), model.RunStatusCompleted, nil)
	third.RecordsWritten = 12
	require.NoError(t, repo.SaveRunExecution(ctx, third))

	got, err := repo.FindRunExecution(ctx, third.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusCompleted, got.Status)
	assert.Equal(t, 12, got.RecordsWritten)

	got.RecordsWritten = 99
	again, err := repo.FindRunExecution(ctx, third.ID)
	require.NoError(t, err)
	assert.Equal(t, 12, again.RecordsWritten, "stored copy is isolated")

	recent, err := repo.FindRecentRunExecutions(ctx, "", 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, third.ID, recent[0].ID)
	assert.Equal(t, second.ID, recent[1].ID)

	harvests, err := repo.FindRecentRunExecutions(ctx, "harvest", 0)
	require.NoError(t, err)
	assert.Len(t, harvests, 2)

	n, err := repo.CountRunExecutions(ctx, "harvest")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	n, err = repo.CountRunExecutions(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	_, err = repo.FindRunExecution(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrRunExecutionNotFound)
	assert.NoError(t, repo.Close())
}
