package writer

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/klauspost/compress/gzip"

	"github.com/tigerroll/querymetrics/internal/domain/model"
	"github.com/tigerroll/querymetrics/pkg/batch/adapter/storage"
	"github.com/tigerroll/querymetrics/pkg/batch/support/util/exception"
	"github.com/tigerroll/querymetrics/pkg/batch/support/util/logger"
)

const moduleName = "writer"

// DefaultPrefix is the root of the partition tree when none is configured.
const DefaultPrefix = "data"

// BatchWriter persists terminal records.
type BatchWriter interface {
	// Write uploads one file per billing period found in records. A failed group does
	// not stop the others; it is reported in WriteResult.FailedGroups and in the
	// returned error, which is always skippable.
	Write(ctx context.Context, records []model.QueryExecutionRecord) (WriteResult, error)
}

// FailedGroup describes a billing-period group that could not be stored.
type FailedGroup struct {
	Period  string
	Key     string
	Records int
	Err     error
}

// WriteResult summarizes one Write call.
type WriteResult struct {
	RecordsWritten int
	// Objects lists the keys uploaded, in group order.
	Objects      []string
	FailedGroups []FailedGroup
}

// Merge folds other into r.
func (r *WriteResult) Merge(other WriteResult) {
	r.RecordsWritten += other.RecordsWritten
	r.Objects = append(r.Objects, other.Objects...)
	r.FailedGroups = append(r.FailedGroups, other.FailedGroups...)
}

// PartitionedBatchWriter writes gzip-compressed files under
// <prefix>/billingperiod=<YYYY-MM-01>/<firstId>_<lastId>.<format>.gz.
type PartitionedBatchWriter struct {
	store  storage.StorageExecutor
	bucket string
	prefix string
	codec  Codec
}

// NewPartitionedBatchWriter creates a writer. An empty prefix means DefaultPrefix
// and a nil codec means CSV.
func NewPartitionedBatchWriter(store storage.StorageExecutor, bucket, prefix string, codec Codec) *PartitionedBatchWriter {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if codec == nil {
		codec = CSVCodec{}
	}
	return &PartitionedBatchWriter{store: store, bucket: bucket, prefix: prefix, codec: codec}
}

// group is the records of one billing period in input order.
type group struct {
	period  string
	records []model.QueryExecutionRecord
}

// groupByPeriod splits records by billing period, ordering groups by first appearance.
func groupByPeriod(records []model.QueryExecutionRecord) []group {
	index := make(map[string]int)
	var groups []group
	for _, r := range records {
		p := r.BillingPeriod()
		i, ok := index[p]
		if !ok {
			i = len(groups)
			index[p] = i
			groups = append(groups, group{period: p})
		}
		groups[i].records = append(groups[i].records, r)
	}
	return groups
}

// ObjectKey returns the key of the file holding records of period, named by the
// first and last record ids of the group.
func ObjectKey(prefix, period, firstID, lastID, format string) string {
	return path.Join(prefix, "billingperiod="+period, fmt.Sprintf("%s_%s.%s.gz", firstID, lastID, format))
}

func (w *PartitionedBatchWriter) Write(ctx context.Context, records []model.QueryExecutionRecord) (WriteResult, error) {
	var result WriteResult
	if len(records) == 0 {
		return result, nil
	}

	var errs error
	for _, g := range groupByPeriod(records) {
		key := ObjectKey(w.prefix, g.period, g.records[0].ID, g.records[len(g.records)-1].ID, w.codec.Format())
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if err := w.writeGroup(ctx, key, g.records); err != nil {
			logger.Errorf("BatchWriter: failed to store %d records of billing period %s to %s/%s: %v",
				len(g.records), g.period, w.bucket, key, err)
			result.FailedGroups = append(result.FailedGroups, FailedGroup{Period: g.period, Key: key, Records: len(g.records), Err: err})
			errs = exception.Append(errs, exception.NewBatchErrorf(moduleName, "store billing period %s to %s", g.period, key, true, false, err))
			continue
		}

		logger.Infof("BatchWriter: wrote %d records to %s/%s", len(g.records), w.bucket, key)
		result.RecordsWritten += len(g.records)
		result.Objects = append(result.Objects, key)
	}

	if errs != nil {
		return result, exception.NewBatchError(moduleName,
			fmt.Sprintf("%d of %d billing period groups failed", len(result.FailedGroups), len(result.FailedGroups)+len(result.Objects)),
			errs, true, false)
	}
	return result, nil
}

// writeGroup encodes and compresses the whole group before uploading, so the
// gzip stream is always closed and never uploaded half-written.
func (w *PartitionedBatchWriter) writeGroup(ctx context.Context, key string, records []model.QueryExecutionRecord) error {
	var buf bytes.Buffer
	if err := encodeGzip(&buf, w.codec, records); err != nil {
		return err
	}
	return w.store.Upload(ctx, w.bucket, key, &buf, w.codec.ContentType())
}

func encodeGzip(buf *bytes.Buffer, codec Codec, records []model.QueryExecutionRecord) error {
	zw := gzip.NewWriter(buf)
	if err := codec.Encode(zw, records); err != nil {
		_ = zw.Close()
		return fmt.Errorf("encode %s: %w", codec.Format(), err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finish gzip stream: %w", err)
	}
	return nil
}
