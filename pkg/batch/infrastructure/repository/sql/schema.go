package sql

import (
	"time"

	model "github.com/tigerroll/querymetrics/pkg/batch/core/domain/model"
)

// RunExecutionEntity is the schema model of a run.
type RunExecutionEntity struct {
	ID             string    `gorm:"primaryKey;size:36"`
	Mode           string    `gorm:"size:16;index:idx_run_mode_start"`
	Status         string    `gorm:"size:16"`
	StartTime      time.Time `gorm:"index:idx_run_mode_start"`
	EndTime        *time.Time
	RecordsWritten int
	Pages          int
	MarkerBefore   string `gorm:"size:64"`
	MarkerAfter    string `gorm:"size:64"`
	MarkerAdvanced bool
	RetryMerged    int
	RetryRemaining int
	FailedGroups   int
	Failures       model.FailureList `gorm:"type:text"`
}

func (RunExecutionEntity) TableName() string {
	return "querymetrics_run_execution"
}
