package s3

import (
	"go.uber.org/fx"

	storageAdapter "github.com/tigerroll/querymetrics/pkg/batch/adapter/storage"
)

// Module registers the S3 provider in the "storage_providers" group.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewS3Provider,
		fx.As(new(storageAdapter.StorageProvider)),
		fx.ResultTags(`group:"storage_providers"`),
	)),
)
