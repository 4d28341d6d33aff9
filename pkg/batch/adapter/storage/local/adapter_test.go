package local

import (
	"context"
	"io"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storageAdapter "github.com/tigerroll/querymetrics/pkg/batch/adapter/storage"
	coreConfig "github.com/tigerroll/querymetrics/pkg/batch/core/config"
)

func newTestConfig(baseDir string) *coreConfig.Config {
	cfg := coreConfig.NewConfig()
	cfg.QueryMetrics.Storage["cursors"] = map[string]interface{}{
		"type":     "local",
		"base_dir": baseDir,
	}
	cfg.QueryMetrics.Storage["remote"] = map[string]interface{}{
		"type": "s3",
	}
	return cfg
}

func TestLocalAdapter_RoundTrip(t *testing.T) {
	ctx := context.Background()
	provider := NewLocalProvider(newTestConfig(t.TempDir()))

	conn, err := provider.GetConnection("cursors")
	require.NoError(t, err)
	assert.Equal(t, ProviderType, conn.Type())
	assert.Equal(t, "cursors", conn.Name())

	require.NoError(t, conn.Upload(ctx, "bucket", "state/marker.txt", strings.NewReader("exec-1"), "text/plain"))

	rc, err := conn.Download(ctx, "bucket", "state/marker.txt")
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "exec-1", string(body))

	require.NoError(t, conn.DeleteObject(ctx, "bucket", "state/marker.txt"))
	_, err = conn.Download(ctx, "bucket", "state/marker.txt")
	assert.True(t, storageAdapter.IsNotFound(err))

	assert.NoError(t, conn.DeleteObject(ctx, "bucket", "state/marker.txt"), "deleting a missing object is not an error")
}

func TestLocalAdapter_ListObjects(t *testing.T) {
	ctx := context.Background()
	conn, err := NewLocalProvider(newTestConfig(t.TempDir())).GetConnection("cursors")
	require.NoError(t, err)

	for _, key := range []string{
		"data/billingperiod=2024-03-01/a_b.csv.gz",
		"data/billingperiod=2024-04-01/c_d.csv.gz",
		"retry.txt",
	} {
		require.NoError(t, conn.Upload(ctx, "out", key, strings.NewReader("x"), ""))
	}

	var got []string
	require.NoError(t, conn.ListObjects(ctx, "out", "data/", func(name string) error {
		got = append(got, name)
		return nil
	}))
	sort.Strings(got)
	assert.Equal(t, []string{
		"data/billingperiod=2024-03-01/a_b.csv.gz",
		"data/billingperiod=2024-04-01/c_d.csv.gz",
	}, got)

	var none []string
	require.NoError(t, conn.ListObjects(ctx, "missing-bucket", "", func(name string) error {
		none = append(none, name)
		return nil
	}))
	assert.Empty(t, none)
}

func TestLocalAdapter_RejectsEscapingPaths(t *testing.T) {
	conn, err := NewLocalProvider(newTestConfig(t.TempDir())).GetConnection("cursors")
	require.NoError(t, err)

	err = conn.Upload(context.Background(), "bucket", "../../etc/passwd", strings.NewReader("x"), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside of base_dir")
}

func TestLocalProvider_CachesAndChecksType(t *testing.T) {
	provider := NewLocalProvider(newTestConfig(t.TempDir()))

	first, err := provider.GetConnection("cursors")
	require.NoError(t, err)
	second, err := provider.GetConnection("cursors")
	require.NoError(t, err)
	assert.Same(t, first, second)

	_, err = provider.GetConnection("remote")
	assert.ErrorContains(t, err, "type mismatch")

	_, err = provider.GetConnection("unknown")
	assert.ErrorContains(t, err, "not found")

	reconnected, err := provider.ForceReconnect("cursors")
	require.NoError(t, err)
	assert.NotSame(t, first, reconnected)
	assert.NoError(t, provider.CloseAll())
}

func TestConnectionResolver_RoutesByType(t *testing.T) {
	cfg := newTestConfig(t.TempDir())
	resolver := storageAdapter.NewConnectionResolver(cfg, NewLocalProvider(cfg))

	conn, err := resolver.ResolveStorageConnection(context.Background(), "cursors")
	require.NoError(t, err)
	assert.Equal(t, "local", conn.Type())

	_, err = resolver.ResolveStorageConnection(context.Background(), "remote")
	assert.ErrorContains(t, err, "no storage provider found for type 's3'")
}
