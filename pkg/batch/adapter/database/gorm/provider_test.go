package gorm_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/querymetrics/pkg/batch/adapter/database"
	dbconfig "github.com/tigerroll/querymetrics/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/querymetrics/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/querymetrics/pkg/batch/adapter/database/gorm/mysql"
	"github.com/tigerroll/querymetrics/pkg/batch/adapter/database/gorm/postgres"
	"github.com/tigerroll/querymetrics/pkg/batch/adapter/database/gorm/sqlite"
	config "github.com/tigerroll/querymetrics/pkg/batch/core/config"
)

type widget struct {
	ID    string `gorm:"primaryKey"`
	Count int
}

func (widget) TableName() string { return "widgets" }

func newConfig(t *testing.T) *config.Config {
	cfg := config.NewConfig()
	cfg.QueryMetrics.Database["history"] = map[string]interface{}{
		"type":     "sqlite",
		"database": filepath.Join(t.TempDir(), "history.db"),
	}
	cfg.QueryMetrics.Database["warehouse"] = map[string]interface{}{
		"type": "postgres",
		"host": "db",
	}
	return cfg
}

func newResolver(cfg *config.Config) *gormadapter.GormDBConnectionResolver {
	return gormadapter.NewGormDBConnectionResolver(gormadapter.ResolverParams{
		DBProviders: []database.DBProvider{sqlite.NewProvider(cfg)},
		Cfg:         cfg,
	})
}

func TestResolver_SQLiteUpsertAndQuery(t *testing.T) {
	ctx := context.Background()
	resolver := newResolver(newConfig(t))
	t.Cleanup(func() { _ = resolver.CloseAll() })

	conn, err := resolver.ResolveDBConnection(ctx, "history")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", conn.Type())
	assert.Equal(t, "history", conn.Name())

	var none []widget
	err = conn.ExecuteQueryAdvanced(ctx, &none, nil, "", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such table")

	require.NoError(t, conn.AutoMigrate(ctx, &widget{}))

	_, err = conn.ExecuteUpsert(ctx, &widget{ID: "a", Count: 1}, "widgets", []string{"id"}, []string{"count"})
	require.NoError(t, err)
	_, err = conn.ExecuteUpsert(ctx, &widget{ID: "a", Count: 5}, "widgets", []string{"id"}, []string{"count"})
	require.NoError(t, err)
	_, err = conn.ExecuteUpsert(ctx, &widget{ID: "b", Count: 2}, "widgets", []string{"id"}, nil)
	require.NoError(t, err)

	var got []widget
	require.NoError(t, conn.ExecuteQueryAdvanced(ctx, &got, nil, "id desc", 10))
	assert.Equal(t, []widget{{ID: "b", Count: 2}, {ID: "a", Count: 5}}, got)

	n, err := conn.Count(ctx, &widget{}, map[string]interface{}{"id": "a"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	again, err := resolver.ResolveDBConnection(ctx, "history")
	require.NoError(t, err)
	assert.Same(t, conn, again)
}

func TestResolver_Errors(t *testing.T) {
	resolver := newResolver(newConfig(t))

	_, err := resolver.ResolveDBConnection(context.Background(), "missing")
	assert.ErrorContains(t, err, "not found")

	_, err = resolver.ResolveDBConnection(context.Background(), "warehouse")
	assert.ErrorContains(t, err, "DBProvider for type 'postgres' not found")
}

func TestConnectionStrings(t *testing.T) {
	c := dbconfig.DatabaseConfig{Host: "h", Port: 5432, User: "u", Password: "p", Database: "d"}
	assert.Equal(t, "host=h port=5432 user=u password=p dbname=d sslmode=disable TimeZone=UTC", postgres.ConnectionString(c))

	c.Port = 3306
	assert.Equal(t, "u:p@tcp(h:3306)/d?charset=utf8mb4&parseTime=true&loc=UTC", mysql.ConnectionString(c))

	assert.Equal(t, "d", sqlite.ConnectionString(c))
}

func TestGetDialectorFactory_Unknown(t *testing.T) {
	_, err := gormadapter.GetDialectorFactory("oracle")
	assert.Error(t, err)
}
