package azblob

import (
	"go.uber.org/fx"

	storageAdapter "github.com/tigerroll/querymetrics/pkg/batch/adapter/storage"
)

// Module registers the Azure Blob provider in the "storage_providers" group.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewAzblobProvider,
		fx.As(new(storageAdapter.StorageProvider)),
		fx.ResultTags(`group:"storage_providers"`),
	)),
)
