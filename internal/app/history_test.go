package app

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreModel "github.com/tigerroll/querymetrics/pkg/batch/core/domain/model"
	"github.com/tigerroll/querymetrics/pkg/batch/core/metrics"
)

func TestWriteHistory(t *testing.T) {
	start := time.Date(2024, 3, 17, 10, 0, 0, 0, time.UTC)
	advanced := coreModel.NewRunExecution(metrics.ModeHarvest, start)
	advanced.RecordsWritten = 12
	advanced.MarkerBefore = "old"
	advanced.MarkerAfter = "new"
	advanced.MarkerAdvanced = true
	advanced.Finish(start.Add(2*time.Second), coreModel.RunStatusCompleted, nil)

	idle := coreModel.NewRunExecution(metrics.ModeRetry, start.Add(time.Hour))
	idle.Finish(start.Add(time.Hour), coreModel.RunStatusNoWork, nil)

	var buf bytes.Buffer
	require.NoError(t, writeHistory(&buf, []*coreModel.RunExecution{advanced, idle}, 7))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 4)
	assert.Contains(t, string(lines[0]), "STATUS")
	assert.Contains(t, string(lines[1]), "old -> new")
	assert.Contains(t, string(lines[1]), "COMPLETED")
	assert.Contains(t, string(lines[1]), "2s")
	assert.Contains(t, string(lines[2]), "NO_WORK")
	assert.Contains(t, string(lines[2]), idle.ID)
	assert.Equal(t, "Showing 2 of 7 runs.", string(lines[3]))
}
