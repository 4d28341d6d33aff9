// Package adapter defines the connection contracts shared by storage and database adapters.
package adapter

// ResourceConnection represents a connection to any external resource.
type ResourceConnection interface {
	// Close releases the connection.
	Close() error
	// Type returns the provider type (e.g., "s3", "sqlite").
	Type() string
	// Name returns the configured connection name (e.g., "cursors", "history").
	Name() string
}
