package storage

import (
	"fmt"
	"sync"

	storageConfig "github.com/tigerroll/querymetrics/pkg/batch/adapter/storage/config"
	coreConfig "github.com/tigerroll/querymetrics/pkg/batch/core/config"
	"github.com/tigerroll/querymetrics/pkg/batch/support/util/exception"
	"github.com/tigerroll/querymetrics/pkg/batch/support/util/logger"
)

// ConnectionFactory opens a backend connection from its decoded settings.
type ConnectionFactory func(cfg storageConfig.StorageConfig, name string) (StorageConnection, error)

// CachingProvider is the StorageProvider shared by every backend. It decodes
// the named settings, checks the type, and caches one connection per name.
type CachingProvider struct {
	providerType string
	cfg          *coreConfig.Config
	factory      ConnectionFactory
	connections  map[string]StorageConnection
	mu           sync.RWMutex
}

// NewCachingProvider creates a provider for providerType backed by factory.
func NewCachingProvider(providerType string, cfg *coreConfig.Config, factory ConnectionFactory) *CachingProvider {
	return &CachingProvider{
		providerType: providerType,
		cfg:          cfg,
		factory:      factory,
		connections:  make(map[string]StorageConnection),
	}
}

// GetConnection implements StorageProvider.
func (p *CachingProvider) GetConnection(name string) (StorageConnection, error) {
	p.mu.RLock()
	conn, ok := p.connections[name]
	p.mu.RUnlock()
	if ok {
		return conn, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connectLocked(name)
}

func (p *CachingProvider) connectLocked(name string) (StorageConnection, error) {
	if conn, ok := p.connections[name]; ok {
		return conn, nil
	}

	sc, err := storageConfig.Lookup(p.cfg, name)
	if err != nil {
		return nil, err
	}
	if sc.Type != p.providerType {
		return nil, fmt.Errorf("storage config type mismatch for '%s': expected '%s', got '%s'", name, p.providerType, sc.Type)
	}

	conn, err := p.factory(sc, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s adapter for '%s': %w", p.providerType, name, err)
	}
	p.connections[name] = conn
	logger.Debugf("Created new %s storage connection '%s'.", p.providerType, name)
	return conn, nil
}

// CloseAll implements StorageProvider.
func (p *CachingProvider) CloseAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs error
	for name, conn := range p.connections {
		if err := conn.Close(); err != nil {
			errs = exception.Append(errs, fmt.Errorf("failed to close %s storage connection '%s': %w", p.providerType, name, err))
		}
		delete(p.connections, name)
	}
	return errs
}

// Type implements StorageProvider.
func (p *CachingProvider) Type() string {
	return p.providerType
}

// ForceReconnect implements StorageProvider.
func (p *CachingProvider) ForceReconnect(name string) (StorageConnection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if conn, ok := p.connections[name]; ok {
		if err := conn.Close(); err != nil {
			logger.Warnf("Failed to close %s storage connection '%s' during reconnect: %v", p.providerType, name, err)
		}
		delete(p.connections, name)
	}
	return p.connectLocked(name)
}
