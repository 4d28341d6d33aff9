// Package config describes a single named storage connection.
package config

import (
	"fmt"

	coreConfig "github.com/tigerroll/querymetrics/pkg/batch/core/config"
	"github.com/tigerroll/querymetrics/pkg/batch/support/util/configbinder"
)

// StorageConfig holds configuration for a single storage connection.
// Fields not used by a backend are ignored by it.
type StorageConfig struct {
	Type            string `yaml:"type"`             // local, s3, minio, gcs, azblob
	BucketName      string `yaml:"bucket_name"`      // Default bucket when a call passes none.
	CredentialsFile string `yaml:"credentials_file"` // GCS service account key.
	BaseDir         string `yaml:"base_dir"`         // local only.

	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	SessionToken    string `yaml:"session_token"`
	UsePathStyle    bool   `yaml:"use_path_style"`
	UseSSL          bool   `yaml:"use_ssl"`

	AccountName string `yaml:"account_name"` // azblob
	AccountKey  string `yaml:"account_key"`  // azblob
	ServiceURL  string `yaml:"service_url"`  // azblob, defaults to https://<account>.blob.core.windows.net/
}

// Lookup decodes the storage connection called name from the application config.
func Lookup(cfg *coreConfig.Config, name string) (StorageConfig, error) {
	var sc StorageConfig
	raw, ok := cfg.QueryMetrics.Storage[name]
	if !ok {
		return sc, fmt.Errorf("storage configuration for name '%s' not found", name)
	}
	if err := configbinder.Bind(raw, &sc); err != nil {
		return sc, fmt.Errorf("failed to decode storage config for '%s': %w", name, err)
	}
	return sc, nil
}
