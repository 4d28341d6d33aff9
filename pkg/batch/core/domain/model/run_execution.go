// Package model holds the run-history domain types.
package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RunStatus represents the outcome of a harvest or retry run.
type RunStatus string

const (
	RunStatusStarted   RunStatus = "STARTED"
	RunStatusCompleted RunStatus = "COMPLETED"
	// RunStatusNoWork marks a run that found nothing to do (marker unchanged, empty retry file).
	RunStatusNoWork RunStatus = "NO_WORK"
	RunStatusFailed RunStatus = "FAILED"
)

// String returns the string representation of the RunStatus.
func (s RunStatus) String() string {
	return string(s)
}

// IsFinished reports whether the run has ended.
func (s RunStatus) IsFinished() bool {
	return s == RunStatusCompleted || s == RunStatusNoWork || s == RunStatusFailed
}

// FailureList holds a list of error messages.
type FailureList []string

// Value implements the `driver.Valuer` interface, converting FailureList to a JSON string.
func (fl FailureList) Value() (driver.Value, error) {
	if fl == nil {
		return "[]", nil
	}
	data, err := json.Marshal(fl)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements the `sql.Scanner` interface, converting a JSON string to FailureList.
func (fl *FailureList) Scan(value interface{}) error {
	var b []byte
	switch v := value.(type) {
	case nil:
		*fl = FailureList{}
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("unsupported Scan type for FailureList: %T", value)
	}
	if len(b) == 0 {
		*fl = FailureList{}
		return nil
	}
	if err := json.Unmarshal(b, fl); err != nil {
		return fmt.Errorf("failed to unmarshal FailureList JSON: %w", err)
	}
	return nil
}

// RunExecution is the persisted record of one run.
type RunExecution struct {
	ID             string
	Mode           string
	Status         RunStatus
	StartTime      time.Time
	EndTime        *time.Time
	RecordsWritten int
	Pages          int
	MarkerBefore   string
	MarkerAfter    string
	MarkerAdvanced bool
	RetryMerged    int
	RetryRemaining int
	FailedGroups   int
	// Failures holds the failed group keys followed by the fatal error, if any.
	Failures FailureList
}

// NewRunExecution creates a started run with a fresh id.
func NewRunExecution(mode string, start time.Time) *RunExecution {
	return &RunExecution{
		ID:        uuid.NewString(),
		Mode:      mode,
		Status:    RunStatusStarted,
		StartTime: start,
		Failures:  FailureList{},
	}
}

// Finish sets the end time and status. A non-nil err marks the run failed and is
// appended to Failures.
func (r *RunExecution) Finish(end time.Time, status RunStatus, err error) {
	r.EndTime = &end
	r.Status = status
	if err != nil {
		r.Status = RunStatusFailed
		r.Failures = append(r.Failures, err.Error())
	}
}

// Duration returns the run's elapsed time, or zero while it is running.
func (r *RunExecution) Duration() time.Duration {
	if r.EndTime == nil {
		return 0
	}
	return r.EndTime.Sub(r.StartTime)
}
