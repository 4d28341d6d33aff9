package sql

import (
	model "github.com/tigerroll/querymetrics/pkg/batch/core/domain/model"
)

func fromDomainRunExecution(r *model.RunExecution) *RunExecutionEntity {
	if r == nil {
		return nil
	}
	return &RunExecutionEntity{
		ID:             r.ID,
		Mode:           r.Mode,
		Status:         r.Status.String(),
		StartTime:      r.StartTime.UTC(),
		EndTime:        utcPtr(r.EndTime),
		RecordsWritten: r.RecordsWritten,
		Pages:          r.Pages,
		MarkerBefore:   r.MarkerBefore,
		MarkerAfter:    r.MarkerAfter,
		MarkerAdvanced: r.MarkerAdvanced,
		RetryMerged:    r.RetryMerged,
		RetryRemaining: r.RetryRemaining,
		FailedGroups:   r.FailedGroups,
		Failures:       r.Failures,
	}
}

func toDomainRunExecution(e *RunExecutionEntity) *model.RunExecution {
	if e == nil {
		return nil
	}
	return &model.RunExecution{
		ID:             e.ID,
		Mode:           e.Mode,
		Status:         model.RunStatus(e.Status),
		StartTime:      e.StartTime.UTC(),
		EndTime:        utcPtr(e.EndTime),
		RecordsWritten: e.RecordsWritten,
		Pages:          e.Pages,
		MarkerBefore:   e.MarkerBefore,
		MarkerAfter:    e.MarkerAfter,
		MarkerAdvanced: e.MarkerAdvanced,
		RetryMerged:    e.RetryMerged,
		RetryRemaining: e.RetryRemaining,
		FailedGroups:   e.FailedGroups,
		Failures:       e.Failures,
	}
}
