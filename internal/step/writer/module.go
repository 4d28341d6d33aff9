package writer

import (
	"context"

	"go.uber.org/fx"

	"github.com/tigerroll/querymetrics/pkg/batch/adapter/storage"
	config "github.com/tigerroll/querymetrics/pkg/batch/core/config"
	"github.com/tigerroll/querymetrics/pkg/batch/support/util/exception"
)

// WriterParams defines the dependencies for NewBatchWriter.
type WriterParams struct {
	fx.In
	Config   *config.Config
	Resolver storage.StorageConnectionResolver
}

// NewBatchWriter resolves the result storage connection and builds a
// PartitionedBatchWriter in the configured format.
func NewBatchWriter(p WriterParams) (BatchWriter, error) {
	h := p.Config.QueryMetrics.Harvest
	codec, err := NewCodec(h.Format)
	if err != nil {
		return nil, err
	}
	conn, err := p.Resolver.ResolveStorageConnection(context.Background(), h.Result.StorageRef)
	if err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to resolve result storage", err, false, false)
	}
	return NewPartitionedBatchWriter(conn, h.Result.Bucket, h.Result.Prefix, codec), nil
}

// Module provides the BatchWriter.
var Module = fx.Options(
	fx.Provide(NewBatchWriter),
)
