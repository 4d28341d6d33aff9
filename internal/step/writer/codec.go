// Package writer serializes terminal query executions into compressed batch
// files, one per billing period, and uploads them to the result store.
package writer

import (
	"fmt"
	"io"
	"strings"

	"github.com/tigerroll/querymetrics/internal/domain/model"
	coreConfig "github.com/tigerroll/querymetrics/pkg/batch/core/config"
	"github.com/tigerroll/querymetrics/pkg/batch/support/util/exception"
)

// TimestampLayout is how submission and completion times are written (always UTC).
const TimestampLayout = "2006-01-02 15:04:05.000"

// Columns is the fixed column order of every batch file.
var Columns = []string{
	"QueryExecutionId",
	"Database",
	"StatementType",
	"DataScannedInBytes",
	"EngineExecutionTimeInMillis",
	"SubmissionDate",
	"CompletionDate",
	"Status",
	"OutputLocation",
	"EncryptionConfiguration",
	"KmsKey",
	"Query",
	"BillingPeriod",
}

// Codec converts records to and from one uncompressed file format.
type Codec interface {
	// Format is the file extension before ".gz" (e.g., "csv").
	Format() string
	// ContentType is the MIME type of the uncompressed payload.
	ContentType() string
	Encode(w io.Writer, records []model.QueryExecutionRecord) error
	Decode(r io.Reader) ([]model.QueryExecutionRecord, error)
}

// NewCodec returns the codec for a configured format name.
func NewCodec(format string) (Codec, error) {
	switch strings.ToLower(format) {
	case "", coreConfig.FormatCSV:
		return CSVCodec{}, nil
	case coreConfig.FormatParquet:
		return ParquetCodec{}, nil
	default:
		return nil, exception.NewBatchError(moduleName, fmt.Sprintf("unsupported batch format '%s'", format), exception.ErrConfiguration, false, false)
	}
}
