package writer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/tigerroll/querymetrics/internal/domain/model"
)

// CSVCodec writes a header row followed by one row per record.
type CSVCodec struct{}

func (CSVCodec) Format() string      { return "csv" }
func (CSVCodec) ContentType() string { return "text/csv" }

func (CSVCodec) Encode(w io.Writer, records []model.QueryExecutionRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.ID,
			r.Database,
			r.StatementType,
			strconv.FormatInt(r.DataScannedInBytes, 10),
			strconv.FormatInt(r.EngineExecutionTimeInMillis, 10),
			r.SubmittedAt.UTC().Format(TimestampLayout),
			r.CompletedAt.UTC().Format(TimestampLayout),
			string(r.Status),
			r.OutputLocation,
			r.Encryption.Option,
			r.Encryption.KmsKey,
			r.Query,
			r.BillingPeriod(),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (CSVCodec) Decode(r io.Reader) ([]model.QueryExecutionRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Columns)

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	for i, name := range Columns {
		if header[i] != name {
			return nil, fmt.Errorf("unexpected csv column %d: got %q, want %q", i, header[i], name)
		}
	}

	var records []model.QueryExecutionRecord
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}
		rec, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		records = append(records, rec)
	}
}

func parseRow(row []string) (model.QueryExecutionRecord, error) {
	scanned, err := strconv.ParseInt(row[3], 10, 64)
	if err != nil {
		return model.QueryExecutionRecord{}, fmt.Errorf("DataScannedInBytes: %w", err)
	}
	millis, err := strconv.ParseInt(row[4], 10, 64)
	if err != nil {
		return model.QueryExecutionRecord{}, fmt.Errorf("EngineExecutionTimeInMillis: %w", err)
	}
	submitted, err := time.Parse(TimestampLayout, row[5])
	if err != nil {
		return model.QueryExecutionRecord{}, fmt.Errorf("SubmissionDate: %w", err)
	}
	completed, err := time.Parse(TimestampLayout, row[6])
	if err != nil {
		return model.QueryExecutionRecord{}, fmt.Errorf("CompletionDate: %w", err)
	}

	rec := model.QueryExecutionRecord{
		ID:                          row[0],
		Database:                    row[1],
		StatementType:               row[2],
		DataScannedInBytes:          scanned,
		EngineExecutionTimeInMillis: millis,
		SubmittedAt:                 submitted,
		CompletedAt:                 completed,
		Status:                      model.ExecutionStatus(row[7]),
		OutputLocation:              row[8],
		Encryption:                  model.EncryptionConfiguration{Option: row[9], KmsKey: row[10]},
		Query:                       row[11],
	}
	if err := rec.Validate(); err != nil {
		return model.QueryExecutionRecord{}, err
	}
	if rec.BillingPeriod() != row[12] {
		return model.QueryExecutionRecord{}, fmt.Errorf("BillingPeriod %q does not match SubmissionDate %q", row[12], row[5])
	}
	return rec, nil
}
