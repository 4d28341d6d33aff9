package storage

import (
	"context"

	"go.uber.org/fx"
)

// Module provides the StorageConnectionResolver. Backends are added by their own modules.
var Module = fx.Options(
	fx.Provide(
		NewConnectionResolverFromParams,
		func(r *ConnectionResolver) StorageConnectionResolver { return r },
	),
	fx.Invoke(func(lc fx.Lifecycle, r *ConnectionResolver) {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error { return r.CloseAll() },
		})
	}),
)
