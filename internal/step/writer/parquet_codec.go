package writer

import (
	"fmt"
	"io"
	"time"

	"github.com/xitongsys/parquet-go-source/buffer"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	pqwriter "github.com/xitongsys/parquet-go/writer"

	"github.com/tigerroll/querymetrics/internal/domain/model"
)

// parquetRow mirrors Columns. Timestamps are stored as epoch milliseconds.
type parquetRow struct {
	QueryExecutionId            string `parquet:"name=QueryExecutionId, type=BYTE_ARRAY, convertedtype=UTF8"`
	Database                    string `parquet:"name=Database, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	StatementType               string `parquet:"name=StatementType, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	DataScannedInBytes          int64  `parquet:"name=DataScannedInBytes, type=INT64"`
	EngineExecutionTimeInMillis int64  `parquet:"name=EngineExecutionTimeInMillis, type=INT64"`
	SubmissionDate              int64  `parquet:"name=SubmissionDate, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
	CompletionDate              int64  `parquet:"name=CompletionDate, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
	Status                      string `parquet:"name=Status, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	OutputLocation              string `parquet:"name=OutputLocation, type=BYTE_ARRAY, convertedtype=UTF8"`
	EncryptionConfiguration     string `parquet:"name=EncryptionConfiguration, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	KmsKey                      string `parquet:"name=KmsKey, type=BYTE_ARRAY, convertedtype=UTF8"`
	Query                       string `parquet:"name=Query, type=BYTE_ARRAY, convertedtype=UTF8"`
	BillingPeriod               string `parquet:"name=BillingPeriod, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
}

// ParquetCodec writes a single-row-group Parquet file. Pages are left
// uncompressed because the whole file is gzipped on upload.
type ParquetCodec struct{}

func (ParquetCodec) Format() string      { return "parquet" }
func (ParquetCodec) ContentType() string { return "application/vnd.apache.parquet" }

func (ParquetCodec) Encode(w io.Writer, records []model.QueryExecutionRecord) (err error) {
	pw, err := pqwriter.NewParquetWriterFromWriter(w, new(parquetRow), 1)
	if err != nil {
		return fmt.Errorf("create parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_UNCOMPRESSED
	pw.RowGroupSize = 128 * 1024 * 1024

	for _, r := range records {
		row := parquetRow{
			QueryExecutionId:            r.ID,
			Database:                    r.Database,
			StatementType:               r.StatementType,
			DataScannedInBytes:          r.DataScannedInBytes,
			EngineExecutionTimeInMillis: r.EngineExecutionTimeInMillis,
			SubmissionDate:              r.SubmittedAt.UnixMilli(),
			CompletionDate:              r.CompletedAt.UnixMilli(),
			Status:                      string(r.Status),
			OutputLocation:              r.OutputLocation,
			EncryptionConfiguration:     r.Encryption.Option,
			KmsKey:                      r.Encryption.KmsKey,
			Query:                       r.Query,
			BillingPeriod:               r.BillingPeriod(),
		}
		if err := pw.Write(row); err != nil {
			return fmt.Errorf("write parquet row '%s': %w", r.ID, err)
		}
	}

	// parquet-go panics on some schema/encoding faults while flushing.
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("parquet writer panicked during WriteStop: %v", p)
		}
	}()
	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("finalize parquet file: %w", err)
	}
	return nil
}

func (ParquetCodec) Decode(r io.Reader) ([]model.QueryExecutionRecord, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read parquet payload: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	bf, err := buffer.NewBufferFile(data)
	if err != nil {
		return nil, fmt.Errorf("open parquet payload: %w", err)
	}
	pr, err := reader.NewParquetReader(bf, new(parquetRow), 1)
	if err != nil {
		return nil, fmt.Errorf("open parquet payload: %w", err)
	}
	defer pr.ReadStop()

	rows := make([]parquetRow, pr.GetNumRows())
	if err := pr.Read(&rows); err != nil {
		return nil, fmt.Errorf("read parquet rows: %w", err)
	}

	records := make([]model.QueryExecutionRecord, 0, len(rows))
	for _, row := range rows {
		rec := model.QueryExecutionRecord{
			ID:                          row.QueryExecutionId,
			Database:                    row.Database,
			StatementType:               row.StatementType,
			DataScannedInBytes:          row.DataScannedInBytes,
			EngineExecutionTimeInMillis: row.EngineExecutionTimeInMillis,
			SubmittedAt:                 time.UnixMilli(row.SubmissionDate).UTC(),
			CompletedAt:                 time.UnixMilli(row.CompletionDate).UTC(),
			Status:                      model.ExecutionStatus(row.Status),
			OutputLocation:              row.OutputLocation,
			Encryption:                  model.EncryptionConfiguration{Option: row.EncryptionConfiguration, KmsKey: row.KmsKey},
			Query:                       row.Query,
		}
		if err := rec.Validate(); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}
