package config

import (
	"fmt"

	coreConfig "github.com/tigerroll/querymetrics/pkg/batch/core/config"
	"github.com/tigerroll/querymetrics/pkg/batch/support/util/configbinder"
)

// PoolConfig holds database connection pool settings.
type PoolConfig struct {
	MaxOpenConns           int `yaml:"max_open_conns"`
	MaxIdleConns           int `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int `yaml:"conn_max_lifetime_minutes"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Type     string `yaml:"type"`     // Database type (e.g., "postgres", "mysql", "sqlite").
	Host     string `yaml:"host"`     // Database host address.
	Port     int    `yaml:"port"`     // Database port number.
	Database string `yaml:"database"` // Database name, or the file path for sqlite.
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Sslmode  string `yaml:"sslmode"` // SSL mode for PostgreSQL.
	// LogLevel is the GORM log level: "silent" (default), "error", "warn" or "info".
	LogLevel string     `yaml:"log_level"`
	Pool     PoolConfig `yaml:"pool"`
}

// Lookup decodes the named entry of the database section.
func Lookup(cfg *coreConfig.Config, name string) (DatabaseConfig, error) {
	var dbConfig DatabaseConfig
	raw, ok := cfg.QueryMetrics.Database[name]
	if !ok {
		return dbConfig, fmt.Errorf("database configuration '%s' not found", name)
	}
	if err := configbinder.Bind(raw, &dbConfig); err != nil {
		return dbConfig, fmt.Errorf("failed to decode database config for '%s': %w", name, err)
	}
	return dbConfig, nil
}
