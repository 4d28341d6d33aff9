// Package model defines the flattened query-execution metric written by the harvester.
package model

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/tigerroll/querymetrics/pkg/batch/support/util/exception"
)

// ExecutionStatus is the query service's execution state, passed through as its string value.
type ExecutionStatus string

const (
	StatusQueued    ExecutionStatus = "QUEUED"
	StatusRunning   ExecutionStatus = "RUNNING"
	StatusSucceeded ExecutionStatus = "SUCCEEDED"
	StatusFailed    ExecutionStatus = "FAILED"
	StatusCancelled ExecutionStatus = "CANCELLED"
)

// IsTerminal reports whether the execution is finished and ready to be written.
// FAILED is finished too but is deliberately not terminal here: failed executions are dropped.
func (s ExecutionStatus) IsTerminal() bool {
	return s == StatusSucceeded || s == StatusCancelled
}

// IsInFlight reports whether the execution may still change state.
func (s ExecutionStatus) IsInFlight() bool {
	return s == StatusQueued || s == StatusRunning
}

// BillingPeriodLayout formats a billing period (always the first of the month).
const BillingPeriodLayout = "2006-01-02"

// BillingPeriodOf truncates t (in UTC) to the first day of its month.
func BillingPeriodOf(t time.Time) string {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), 1, 0, 0, 0, 0, time.UTC).Format(BillingPeriodLayout)
}

// EncryptionConfiguration describes result encryption. Both fields are empty when unset.
type EncryptionConfiguration struct {
	Option string
	KmsKey string
}

// QueryExecutionRecord is one finished or in-flight query execution.
type QueryExecutionRecord struct {
	ID                          string
	Database                    string
	StatementType               string
	DataScannedInBytes          int64
	EngineExecutionTimeInMillis int64
	SubmittedAt                 time.Time
	CompletedAt                 time.Time
	Status                      ExecutionStatus
	OutputLocation              string
	Encryption                  EncryptionConfiguration
	// Query is the query body, base64 (standard encoding) of its UTF-8 bytes.
	Query string
}

// RecordFields carries the raw values a QueryExecutionRecord is built from.
// QueryText is the plain query body; it is encoded by NewQueryExecutionRecord.
type RecordFields struct {
	ID                          string
	Database                    string
	StatementType               string
	DataScannedInBytes          int64
	EngineExecutionTimeInMillis int64
	SubmittedAt                 time.Time
	CompletedAt                 time.Time
	Status                      ExecutionStatus
	OutputLocation              string
	EncryptionOption            string
	KmsKey                      string
	QueryText                   string
}

// NewQueryExecutionRecord builds a validated record. Timestamps are normalized to
// UTC at millisecond precision, the precision the batch formats carry.
func NewQueryExecutionRecord(f RecordFields) (QueryExecutionRecord, error) {
	r := QueryExecutionRecord{
		ID:                          f.ID,
		Database:                    f.Database,
		StatementType:               f.StatementType,
		DataScannedInBytes:          f.DataScannedInBytes,
		EngineExecutionTimeInMillis: f.EngineExecutionTimeInMillis,
		SubmittedAt:                 f.SubmittedAt.UTC().Truncate(time.Millisecond),
		CompletedAt:                 f.CompletedAt.UTC().Truncate(time.Millisecond),
		Status:                      f.Status,
		OutputLocation:              f.OutputLocation,
		Encryption:                  EncryptionConfiguration{Option: f.EncryptionOption, KmsKey: f.KmsKey},
	}
	if f.QueryText != "" {
		r.Query = base64.StdEncoding.EncodeToString([]byte(f.QueryText))
	}
	if err := r.Validate(); err != nil {
		return QueryExecutionRecord{}, err
	}
	return r, nil
}

// Validate checks the record invariants: id, database, query and output location
// are non-empty and the numeric statistics are not negative.
func (r QueryExecutionRecord) Validate() error {
	var problem string
	switch {
	case r.ID == "":
		problem = "id is empty"
	case r.Database == "":
		problem = "database is empty"
	case r.Query == "":
		problem = "query is empty"
	case r.OutputLocation == "":
		problem = "output location is empty"
	case r.DataScannedInBytes < 0:
		problem = fmt.Sprintf("data scanned cannot be less than zero, %d was provided", r.DataScannedInBytes)
	case r.EngineExecutionTimeInMillis < 0:
		problem = fmt.Sprintf("engine execution time cannot be less than zero, %d was provided", r.EngineExecutionTimeInMillis)
	default:
		return nil
	}
	return exception.NewBatchErrorf("model", "query execution '%s': %s", r.ID, problem, exception.ErrInvalidRecord)
}

// BillingPeriod is SubmittedAt truncated to the first of its month, formatted YYYY-MM-01.
func (r QueryExecutionRecord) BillingPeriod() string {
	return BillingPeriodOf(r.SubmittedAt)
}

// QueryText decodes the stored query body.
func (r QueryExecutionRecord) QueryText() (string, error) {
	b, err := base64.StdEncoding.DecodeString(r.Query)
	if err != nil {
		return "", fmt.Errorf("decode query of '%s': %w", r.ID, err)
	}
	return string(b), nil
}
