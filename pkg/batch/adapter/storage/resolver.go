package storage

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	storageConfig "github.com/tigerroll/querymetrics/pkg/batch/adapter/storage/config"
	coreConfig "github.com/tigerroll/querymetrics/pkg/batch/core/config"
	"github.com/tigerroll/querymetrics/pkg/batch/support/util/logger"
)

// ResolverParams collects every registered StorageProvider.
type ResolverParams struct {
	fx.In
	Config    *coreConfig.Config
	Providers []StorageProvider `group:"storage_providers"`
}

// ConnectionResolver routes a connection name to the provider for its configured type.
type ConnectionResolver struct {
	providers map[string]StorageProvider
	cfg       *coreConfig.Config
}

var _ StorageConnectionResolver = (*ConnectionResolver)(nil)

// NewConnectionResolver indexes providers by Type().
func NewConnectionResolver(cfg *coreConfig.Config, providers ...StorageProvider) *ConnectionResolver {
	byType := make(map[string]StorageProvider, len(providers))
	for _, p := range providers {
		byType[p.Type()] = p
	}
	return &ConnectionResolver{providers: byType, cfg: cfg}
}

// NewConnectionResolverFromParams is the Fx constructor for ConnectionResolver.
func NewConnectionResolverFromParams(p ResolverParams) *ConnectionResolver {
	return NewConnectionResolver(p.Config, p.Providers...)
}

// ResolveStorageConnection implements StorageConnectionResolver.
func (r *ConnectionResolver) ResolveStorageConnection(ctx context.Context, name string) (StorageConnection, error) {
	sc, err := storageConfig.Lookup(r.cfg, name)
	if err != nil {
		return nil, err
	}

	provider, ok := r.providers[sc.Type]
	if !ok {
		return nil, fmt.Errorf("no storage provider found for type '%s' (connection '%s')", sc.Type, name)
	}

	conn, err := provider.GetConnection(name)
	if err != nil {
		return nil, fmt.Errorf("failed to get storage connection '%s' from provider '%s': %w", name, sc.Type, err)
	}
	logger.Debugf("Resolved storage connection '%s' (%s).", name, sc.Type)
	return conn, nil
}

// CloseAll closes every provider's connections.
func (r *ConnectionResolver) CloseAll() error {
	var firstErr error
	for _, p := range r.providers {
		if err := p.CloseAll(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
