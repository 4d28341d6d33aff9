// Package reader pulls query executions from the query service.
package reader

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tigerroll/querymetrics/internal/domain/model"
	"github.com/tigerroll/querymetrics/pkg/batch/support/util/exception"
)

// MaxBatchSize is the query service's ceiling on ids per detail request.
const MaxBatchSize = 50

// Page is one listing page, newest execution first.
type Page struct {
	IDs []string
	// NextToken is empty when the listing is exhausted.
	NextToken string
}

// ExecutionSource lists execution ids and fetches their details.
// Implementations do not retry; any failure is returned to the caller.
type ExecutionSource interface {
	// ListPage returns the page after token. An empty token requests the newest page.
	ListPage(ctx context.Context, token string) (Page, error)
	// FetchDetails returns records for at most MaxBatchSize ids. Executions that
	// fail record validation are left out and reported through a skippable
	// error wrapping *InvalidRecordsError, next to the valid records.
	FetchDetails(ctx context.Context, ids []string) ([]model.QueryExecutionRecord, error)
}

// InvalidRecordsError lists executions skipped because they failed record validation.
type InvalidRecordsError struct {
	IDs  []string
	Errs []error
}

func (e *InvalidRecordsError) Error() string {
	return fmt.Sprintf("%d query executions failed validation: %s", len(e.IDs), strings.Join(e.IDs, ", "))
}

func (e *InvalidRecordsError) Unwrap() []error { return e.Errs }

func (e *InvalidRecordsError) add(id string, err error) {
	e.IDs = append(e.IDs, id)
	e.Errs = append(e.Errs, err)
}

// SkippedInvalid wraps inv in a skippable BatchError.
func SkippedInvalid(inv *InvalidRecordsError) error {
	return exception.NewBatchError(moduleName, "skipped invalid query executions", inv, true, false)
}

// InvalidRecordIDs returns the ids carried by an *InvalidRecordsError in err's chain.
func InvalidRecordIDs(err error) []string {
	var inv *InvalidRecordsError
	if errors.As(err, &inv) {
		return inv.IDs
	}
	return nil
}

// FetchAll fetches ids in sequential chunks of batchSize (capped at MaxBatchSize)
// and concatenates the results in chunk order. Invalid executions from every
// chunk are collected into one skippable error returned with the records.
func FetchAll(ctx context.Context, src ExecutionSource, ids []string, batchSize int) ([]model.QueryExecutionRecord, error) {
	if batchSize > MaxBatchSize {
		batchSize = MaxBatchSize
	}
	chunks, err := Chunk(ids, batchSize)
	if err != nil {
		return nil, err
	}
	var (
		records []model.QueryExecutionRecord
		invalid InvalidRecordsError
	)
	for _, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		got, err := src.FetchDetails(ctx, chunk)
		if err != nil {
			var inv *InvalidRecordsError
			if exception.IsFatal(err) || !errors.As(err, &inv) {
				return nil, err
			}
			for i, id := range inv.IDs {
				invalid.add(id, inv.Errs[i])
			}
		}
		records = append(records, got...)
	}
	if len(invalid.IDs) > 0 {
		return records, SkippedInvalid(&invalid)
	}
	return records, nil
}
