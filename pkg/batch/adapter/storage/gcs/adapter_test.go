package gcs

import (
	"testing"

	"github.com/stretchr/testify/assert"

	storageConfig "github.com/tigerroll/querymetrics/pkg/batch/adapter/storage/config"
)

func TestClientOptions(t *testing.T) {
	assert.Empty(t, clientOptions(storageConfig.StorageConfig{}))
	assert.Len(t, clientOptions(storageConfig.StorageConfig{CredentialsFile: "/secrets/sa.json"}), 1)
	assert.Len(t, clientOptions(storageConfig.StorageConfig{Endpoint: "http://localhost:4443/storage/v1/"}), 2)
}

func TestNewGCSAdapter_EmulatorEndpoint(t *testing.T) {
	conn, err := NewGCSAdapter(storageConfig.StorageConfig{
		Type:       ProviderType,
		Endpoint:   "http://localhost:4443/storage/v1/",
		BucketName: "metrics",
	}, "results")
	if !assert.NoError(t, err) {
		return
	}
	defer conn.Close()
	assert.Equal(t, "results", conn.Name())
	assert.Equal(t, ProviderType, conn.Type())
	assert.Equal(t, "metrics", conn.(*gcsAdapter).bucketOr(""))
}
