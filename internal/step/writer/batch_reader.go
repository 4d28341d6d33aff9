package writer

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/tigerroll/querymetrics/internal/domain/model"
	"github.com/tigerroll/querymetrics/pkg/batch/adapter/storage"
)

// ReadBatch downloads a file written by PartitionedBatchWriter and decodes it.
// The codec is chosen from the key's format suffix.
func ReadBatch(ctx context.Context, store storage.StorageExecutor, bucket, key string) ([]model.QueryExecutionRecord, error) {
	codec, err := codecForKey(key)
	if err != nil {
		return nil, err
	}

	rc, err := store.Download(ctx, bucket, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	zr, err := gzip.NewReader(rc)
	if err != nil {
		return nil, fmt.Errorf("open gzip stream %s: %w", key, err)
	}
	defer zr.Close()

	return codec.Decode(zr)
}

func codecForKey(key string) (Codec, error) {
	name := strings.TrimSuffix(path.Base(key), ".gz")
	return NewCodec(name[strings.LastIndex(name, ".")+1:])
}
