// Package mysql provides a GORM DBProvider implementation for MySQL databases.
package mysql

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/tigerroll/querymetrics/pkg/batch/adapter/database"
	dbconfig "github.com/tigerroll/querymetrics/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/querymetrics/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/querymetrics/pkg/batch/core/config"
)

// ProviderType is the database type served by this package.
const ProviderType = "mysql"

func init() {
	gormadapter.RegisterDialector(ProviderType, func(cfg dbconfig.DatabaseConfig) (gorm.Dialector, error) {
		return mysql.Open(ConnectionString(cfg)), nil
	})
}

// ConnectionString generates the go-sql-driver DSN. Times are parsed and stored in UTC.
func ConnectionString(c dbconfig.DatabaseConfig) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		c.User, c.Password, c.Host, c.Port, c.Database)
}

// NewProvider creates a new database.DBProvider for MySQL.
func NewProvider(cfg *config.Config) database.DBProvider {
	return gormadapter.NewBaseProvider(cfg, ProviderType)
}
