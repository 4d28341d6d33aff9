package repository

import (
	"context"

	"go.uber.org/fx"

	"github.com/tigerroll/querymetrics/pkg/batch/adapter/storage"
	config "github.com/tigerroll/querymetrics/pkg/batch/core/config"
	"github.com/tigerroll/querymetrics/pkg/batch/support/util/exception"
)

// CursorStoreParams defines the dependencies for NewCursorStore.
type CursorStoreParams struct {
	fx.In
	Config   *config.Config
	Resolver storage.StorageConnectionResolver
}

// NewCursorStore resolves the marker and retry storage connections.
func NewCursorStore(p CursorStoreParams) (CursorStore, error) {
	h := p.Config.QueryMetrics.Harvest
	marker, err := resolveLocation(p.Resolver, h.Marker)
	if err != nil {
		return nil, err
	}
	retry, err := resolveLocation(p.Resolver, h.Retry)
	if err != nil {
		return nil, err
	}
	return NewObjectCursorStore(marker, retry), nil
}

func resolveLocation(resolver storage.StorageConnectionResolver, ref config.ObjectRef) (Location, error) {
	conn, err := resolver.ResolveStorageConnection(context.Background(), ref.StorageRef)
	if err != nil {
		return Location{}, exception.NewBatchErrorf(moduleName, "failed to resolve storage for %s/%s", ref.Bucket, ref.Key, err)
	}
	return Location{Store: conn, Bucket: ref.Bucket, Key: ref.Key}, nil
}

// Module provides the CursorStore.
var Module = fx.Options(
	fx.Provide(NewCursorStore),
)
