// Package repository defines persistence of run history.
package repository

import (
	"context"
	"errors"

	model "github.com/tigerroll/querymetrics/pkg/batch/core/domain/model"
)

// ErrRunExecutionNotFound is returned when no run has the requested id.
var ErrRunExecutionNotFound = errors.New("run execution not found")

// RunRepository persists RunExecutions.
type RunRepository interface {
	// SaveRunExecution inserts the run or replaces the stored copy with the same id.
	SaveRunExecution(ctx context.Context, run *model.RunExecution) error

	// FindRunExecution returns the run with the given id or ErrRunExecutionNotFound.
	FindRunExecution(ctx context.Context, id string) (*model.RunExecution, error)

	// FindRecentRunExecutions returns up to limit runs, newest first. An empty mode matches every mode.
	FindRecentRunExecutions(ctx context.Context, mode string, limit int) ([]*model.RunExecution, error)

	// CountRunExecutions returns how many runs are stored. An empty mode matches every mode.
	CountRunExecutions(ctx context.Context, mode string) (int64, error)

	// Close releases resources (such as database connections) used by the repository.
	Close() error
}
