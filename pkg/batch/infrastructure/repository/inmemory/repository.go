// Package inmemory provides an in-memory implementation of the RunRepository interface,
// suitable for testing and for deployments that do not keep run history.
package inmemory

import (
	"context"
	"sort"
	"sync"

	"github.com/tigerroll/querymetrics/pkg/batch/core/domain/model"
	"github.com/tigerroll/querymetrics/pkg/batch/core/domain/repository"
)

// InMemoryRunRepository holds runs in a map keyed by id.
type InMemoryRunRepository struct {
	runs map[string]*model.RunExecution
	mu   sync.RWMutex // Mutex to protect concurrent access to maps.
}

var _ repository.RunRepository = (*InMemoryRunRepository)(nil)

// NewInMemoryRunRepository creates and initializes a new instance of InMemoryRunRepository.
func NewInMemoryRunRepository() *InMemoryRunRepository {
	return &InMemoryRunRepository{runs: make(map[string]*model.RunExecution)}
}

// SaveRunExecution stores a copy of run, replacing any previous copy.
func (r *InMemoryRunRepository) SaveRunExecution(ctx context.Context, run *model.RunExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[run.ID] = cloneRun(run)
	return nil
}

// FindRunExecution finds a run by its id.
func (r *InMemoryRunRepository) FindRunExecution(ctx context.Context, id string) (*model.RunExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[id]
	if !ok {
		return nil, repository.ErrRunExecutionNotFound
	}
	return cloneRun(run), nil
}

// FindRecentRunExecutions returns runs newest first.
func (r *InMemoryRunRepository) FindRecentRunExecutions(ctx context.Context, mode string, limit int) ([]*model.RunExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*model.RunExecution
	for _, run := range r.runs {
		if mode == "" || run.Mode == mode {
			out = append(out, cloneRun(run))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].ID > out[j].ID
		}
		return out[i].StartTime.After(out[j].StartTime)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// CountRunExecutions counts stored runs of mode, or all runs when mode is empty.
func (r *InMemoryRunRepository) CountRunExecutions(ctx context.Context, mode string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var n int64
	for _, run := range r.runs {
		if mode == "" || run.Mode == mode {
			n++
		}
	}
	return n, nil
}

// Close releases resources used by the repository. It holds none.
func (r *InMemoryRunRepository) Close() error {
	return nil
}

// cloneRun copies run so callers cannot mutate stored state.
func cloneRun(run *model.RunExecution) *model.RunExecution {
	c := *run
	c.Failures = append(model.FailureList{}, run.Failures...)
	if run.EndTime != nil {
		end := *run.EndTime
		c.EndTime = &end
	}
	return &c
}
