// Package sql implements RunRepository on a GORM database connection.
package sql

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tigerroll/querymetrics/pkg/batch/adapter/database"
	model "github.com/tigerroll/querymetrics/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/querymetrics/pkg/batch/core/domain/repository"
	"github.com/tigerroll/querymetrics/pkg/batch/support/util/exception"
	"github.com/tigerroll/querymetrics/pkg/batch/support/util/logger"
)

const moduleName = "SQLRunRepository"

// SQLRunRepository implements the repository.RunRepository interface.
type SQLRunRepository struct {
	dbResolver database.DBConnectionResolver
	// dbName is the name of the database connection used by this repository (e.g., "history").
	dbName string

	migrateOnce sync.Once
	migrateErr  error
}

var _ repository.RunRepository = (*SQLRunRepository)(nil)

// NewSQLRunRepository creates a new instance of SQLRunRepository.
// The table is created on first use.
func NewSQLRunRepository(dbResolver database.DBConnectionResolver, dbName string) *SQLRunRepository {
	return &SQLRunRepository{dbResolver: dbResolver, dbName: dbName}
}

// getDBConnection resolves the connection and makes sure the schema exists.
func (r *SQLRunRepository) getDBConnection(ctx context.Context) (database.DBConnection, error) {
	conn, err := r.dbResolver.ResolveDBConnection(ctx, r.dbName)
	if err != nil {
		return nil, exception.NewBatchError(moduleName, fmt.Sprintf("Failed to resolve DB connection '%s'", r.dbName), err, false, true)
	}
	r.migrateOnce.Do(func() {
		r.migrateErr = conn.AutoMigrate(ctx, &RunExecutionEntity{})
		if r.migrateErr == nil {
			logger.Debugf("%s: schema for '%s' is up to date.", moduleName, RunExecutionEntity{}.TableName())
		}
	})
	if r.migrateErr != nil {
		return nil, exception.NewBatchError(moduleName, "Failed to migrate run history schema", r.migrateErr, false, false)
	}
	return conn, nil
}

func (r *SQLRunRepository) SaveRunExecution(ctx context.Context, run *model.RunExecution) error {
	conn, err := r.getDBConnection(ctx)
	if err != nil {
		return err
	}
	entity := fromDomainRunExecution(run)
	_, err = conn.ExecuteUpsert(ctx, entity, entity.TableName(), []string{"id"}, []string{
		"status", "end_time", "records_written", "pages", "marker_after", "marker_advanced",
		"retry_merged", "retry_remaining", "failed_groups", "failures",
	})
	if err != nil {
		return exception.NewBatchError(moduleName, fmt.Sprintf("failed to save RunExecution (ID: %s)", run.ID), err, true, false)
	}
	return nil
}

func (r *SQLRunRepository) FindRunExecution(ctx context.Context, id string) (*model.RunExecution, error) {
	conn, err := r.getDBConnection(ctx)
	if err != nil {
		return nil, err
	}
	var entities []RunExecutionEntity
	if err := conn.ExecuteQueryAdvanced(ctx, &entities, map[string]interface{}{"id": id}, "", 1); err != nil {
		return nil, exception.NewBatchError(moduleName, fmt.Sprintf("failed to find RunExecution (ID: %s)", id), err, false, false)
	}
	if len(entities) == 0 {
		return nil, repository.ErrRunExecutionNotFound
	}
	return toDomainRunExecution(&entities[0]), nil
}

func (r *SQLRunRepository) FindRecentRunExecutions(ctx context.Context, mode string, limit int) ([]*model.RunExecution, error) {
	conn, err := r.getDBConnection(ctx)
	if err != nil {
		return nil, err
	}
	var query map[string]interface{}
	if mode != "" {
		query = map[string]interface{}{"mode": mode}
	}
	var entities []RunExecutionEntity
	if err := conn.ExecuteQueryAdvanced(ctx, &entities, query, "start_time desc, id desc", limit); err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to list recent RunExecutions", err, false, false)
	}
	out := make([]*model.RunExecution, 0, len(entities))
	for i := range entities {
		out = append(out, toDomainRunExecution(&entities[i]))
	}
	return out, nil
}

func (r *SQLRunRepository) CountRunExecutions(ctx context.Context, mode string) (int64, error) {
	conn, err := r.getDBConnection(ctx)
	if err != nil {
		return 0, err
	}
	var query map[string]interface{}
	if mode != "" {
		query = map[string]interface{}{"mode": mode}
	}
	n, err := conn.Count(ctx, &RunExecutionEntity{}, query)
	if err != nil {
		return 0, exception.NewBatchError(moduleName, "failed to count RunExecutions", err, false, false)
	}
	return n, nil
}

// Close is a no-op; connections are owned by the resolver.
func (r *SQLRunRepository) Close() error {
	return nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
