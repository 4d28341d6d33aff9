// Package gcs stores objects in Google Cloud Storage.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"

	gcstorage "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	storageAdapter "github.com/tigerroll/querymetrics/pkg/batch/adapter/storage"
	storageConfig "github.com/tigerroll/querymetrics/pkg/batch/adapter/storage/config"
	coreConfig "github.com/tigerroll/querymetrics/pkg/batch/core/config"
)

// ProviderType defines the type identifier for this provider.
const ProviderType = "gcs"

type gcsAdapter struct {
	client *gcstorage.Client
	bucket string
	name   string
}

var _ storageAdapter.StorageConnection = (*gcsAdapter)(nil)

// clientOptions translates connection settings into GCS client options.
// Without a credentials file the client falls back to application default credentials.
func clientOptions(cfg storageConfig.StorageConfig) []option.ClientOption {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint), option.WithoutAuthentication())
	}
	return opts
}

// NewGCSAdapter creates a GCS client for the connection.
func NewGCSAdapter(cfg storageConfig.StorageConfig, name string) (storageAdapter.StorageConnection, error) {
	client, err := gcstorage.NewClient(context.Background(), clientOptions(cfg)...)
	if err != nil {
		return nil, fmt.Errorf("create GCS client: %w", err)
	}
	return &gcsAdapter{client: client, bucket: cfg.BucketName, name: name}, nil
}

func (a *gcsAdapter) Close() error { return a.client.Close() }
func (a *gcsAdapter) Type() string { return ProviderType }
func (a *gcsAdapter) Name() string { return a.name }

func (a *gcsAdapter) bucketOr(bucket string) string {
	if bucket == "" {
		return a.bucket
	}
	return bucket
}

// Upload streams data into a new object generation. The object becomes visible when the writer closes.
func (a *gcsAdapter) Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error {
	w := a.client.Bucket(a.bucketOr(bucket)).Object(objectName).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}
	if _, err := io.Copy(w, data); err != nil {
		w.Close()
		return fmt.Errorf("gcs write %s/%s: %w", a.bucketOr(bucket), objectName, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("gcs finalize %s/%s: %w", a.bucketOr(bucket), objectName, err)
	}
	return nil
}

func (a *gcsAdapter) Download(ctx context.Context, bucket, objectName string) (io.ReadCloser, error) {
	r, err := a.client.Bucket(a.bucketOr(bucket)).Object(objectName).NewReader(ctx)
	if err != nil {
		if errors.Is(err, gcstorage.ErrObjectNotExist) {
			return nil, fmt.Errorf("%s/%s: %w", a.bucketOr(bucket), objectName, storageAdapter.ErrObjectNotFound)
		}
		return nil, fmt.Errorf("gcs read %s/%s: %w", a.bucketOr(bucket), objectName, err)
	}
	return r, nil
}

func (a *gcsAdapter) ListObjects(ctx context.Context, bucket, prefix string, fn func(objectName string) error) error {
	it := a.client.Bucket(a.bucketOr(bucket)).Objects(ctx, &gcstorage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("gcs list %s/%s: %w", a.bucketOr(bucket), prefix, err)
		}
		if err := fn(attrs.Name); err != nil {
			return err
		}
	}
}

func (a *gcsAdapter) DeleteObject(ctx context.Context, bucket, objectName string) error {
	err := a.client.Bucket(a.bucketOr(bucket)).Object(objectName).Delete(ctx)
	if err != nil && !errors.Is(err, gcstorage.ErrObjectNotExist) {
		return fmt.Errorf("gcs delete %s/%s: %w", a.bucketOr(bucket), objectName, err)
	}
	return nil
}

// NewGCSProvider creates the StorageProvider for "gcs" connections.
func NewGCSProvider(cfg *coreConfig.Config) storageAdapter.StorageProvider {
	return storageAdapter.NewCachingProvider(ProviderType, cfg, NewGCSAdapter)
}
