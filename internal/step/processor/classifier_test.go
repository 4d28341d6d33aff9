package processor

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tigerroll/querymetrics/internal/domain/model"
)

func rec(id string, status model.ExecutionStatus) model.QueryExecutionRecord {
	return model.QueryExecutionRecord{ID: id, Status: status}
}

func TestClassify_PartitionsEveryStatus(t *testing.T) {
	records := []model.QueryExecutionRecord{
		rec("q1", model.StatusQueued),
		rec("s1", model.StatusSucceeded),
		rec("f1", model.StatusFailed),
		rec("r1", model.StatusRunning),
		rec("c1", model.StatusCancelled),
		rec("s2", model.StatusSucceeded),
		rec("u1", model.ExecutionStatus("SOMETHING_NEW")),
	}

	terminal, nonTerminal := Classify(records)

	assert.Equal(t, []string{"s1", "c1", "s2"}, IDs(terminal))
	assert.Equal(t, []string{"q1", "r1"}, IDs(nonTerminal))
}

func TestClassify_Empty(t *testing.T) {
	terminal, nonTerminal := Classify(nil)
	assert.Empty(t, terminal)
	assert.Empty(t, nonTerminal)
}

func TestClassify_DoesNotMutateInput(t *testing.T) {
	records := []model.QueryExecutionRecord{rec("a", model.StatusRunning), rec("b", model.StatusSucceeded)}
	_, _ = Classify(records)
	assert.Equal(t, []string{"a", "b"}, IDs(records))
}
