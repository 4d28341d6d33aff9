// Package database defines the database connection abstraction used by the
// run-history repository. GORM-backed implementations live in the gorm sub-packages.
package database

import (
	"context"

	coreAdapter "github.com/tigerroll/querymetrics/pkg/batch/core/adapter"
)

// DBExecutor defines the read and write operations the repositories need.
type DBExecutor interface {
	// ExecuteUpsert inserts model, updating updateColumns when a row with the same
	// conflictColumns exists. An empty updateColumns means DO NOTHING.
	ExecuteUpsert(ctx context.Context, model interface{}, tableName string, conflictColumns []string, updateColumns []string) (rowsAffected int64, err error)

	// ExecuteQueryAdvanced executes a read operation with optional sorting and limiting.
	ExecuteQueryAdvanced(ctx context.Context, target interface{}, query map[string]interface{}, orderBy string, limit int) error

	// Count counts the number of records matching the query.
	Count(ctx context.Context, model interface{}, query map[string]interface{}) (int64, error)
}

// DBConnection represents an abstraction of a database connection.
type DBConnection interface {
	coreAdapter.ResourceConnection // Embeds Type(), Name(), Close()
	DBExecutor

	// AutoMigrate creates or updates the tables of the given models.
	AutoMigrate(ctx context.Context, models ...interface{}) error
	// RefreshConnection pings the database.
	RefreshConnection(ctx context.Context) error
}

// DBConnectionResolver resolves a configured connection name to a live connection.
type DBConnectionResolver interface {
	// ResolveDBConnection resolves a database connection instance by name,
	// reconnecting when the cached connection no longer answers a ping.
	ResolveDBConnection(ctx context.Context, name string) (DBConnection, error)
}

// DBProvider is responsible for providing database connections of one type.
type DBProvider interface {
	// GetConnection retrieves a database connection with the specified name.
	GetConnection(name string) (DBConnection, error)
	// CloseAll closes all connections managed by this provider.
	CloseAll() error
	// Type returns the database type handled by this provider (e.g., "postgres").
	Type() string
	// ForceReconnect forces the closure and re-establishment of an existing connection with the specified name.
	ForceReconnect(name string) (DBConnection, error)
}

// DBProviderGroup is the Fx group all DBProvider implementations join.
const DBProviderGroup = "db_providers"
