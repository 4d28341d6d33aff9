package model

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunExecution_Lifecycle(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	run := NewRunExecution("harvest", start)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, RunStatusStarted, run.Status)
	assert.False(t, run.Status.IsFinished())
	assert.Zero(t, run.Duration())

	run.Finish(start.Add(3*time.Second), RunStatusCompleted, nil)
	assert.Equal(t, RunStatusCompleted, run.Status)
	assert.True(t, run.Status.IsFinished())
	assert.Equal(t, 3*time.Second, run.Duration())

	other := NewRunExecution("retry", start)
	assert.NotEqual(t, run.ID, other.ID)
	other.Finish(start, RunStatusCompleted, errors.New("list failed"))
	assert.Equal(t, RunStatusFailed, other.Status)
	assert.Equal(t, FailureList{"list failed"}, other.Failures)
}

func TestFailureList_ValueScan(t *testing.T) {
	v, err := FailureList(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)

	var fl FailureList
	require.NoError(t, fl.Scan([]byte(`["a","b"]`)))
	assert.Equal(t, FailureList{"a", "b"}, fl)

	require.NoError(t, fl.Scan(nil))
	assert.Empty(t, fl)

	assert.Error(t, fl.Scan(42))
}
