// Package storage defines the object-store abstraction used for cursors and batch files.
// Concrete backends (local filesystem, S3, MinIO, GCS, Azure Blob) live in sub-packages
// and register themselves as StorageProviders in the "storage_providers" Fx group.
package storage

import (
	"context"
	"errors"
	"io"

	coreAdapter "github.com/tigerroll/querymetrics/pkg/batch/core/adapter"
)

// ErrObjectNotFound is returned (wrapped) by Download when the object does not exist.
var ErrObjectNotFound = errors.New("object not found")

// StorageExecutor defines generic blob operations.
type StorageExecutor interface {
	// Upload writes data to bucket/objectName, replacing any existing object.
	Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error
	// Download opens bucket/objectName. The caller must close the returned reader.
	Download(ctx context.Context, bucket, objectName string) (io.ReadCloser, error)
	// ListObjects calls fn for each object name under prefix.
	ListObjects(ctx context.Context, bucket, prefix string, fn func(objectName string) error) error
	// DeleteObject removes bucket/objectName. Deleting a missing object is not an error.
	DeleteObject(ctx context.Context, bucket, objectName string) error
}

// StorageConnection is a named, closable StorageExecutor.
type StorageConnection interface {
	coreAdapter.ResourceConnection
	StorageExecutor
}

// StorageProvider manages connections for one backend type.
type StorageProvider interface {
	// GetConnection returns the cached connection for name, creating it on first use.
	GetConnection(name string) (StorageConnection, error)
	// CloseAll closes every connection created by this provider.
	CloseAll() error
	// Type returns the backend type handled by this provider (e.g., "s3").
	Type() string
	// ForceReconnect drops the cached connection for name and creates a new one.
	ForceReconnect(name string) (StorageConnection, error)
}

// StorageConnectionResolver finds the provider for a configured connection name.
type StorageConnectionResolver interface {
	ResolveStorageConnection(ctx context.Context, name string) (StorageConnection, error)
}

// IsNotFound reports whether err means the object does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrObjectNotFound)
}
