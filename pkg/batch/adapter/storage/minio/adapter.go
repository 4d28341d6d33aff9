// Package minio stores objects in a MinIO (or other S3-compatible) server through minio-go.
package minio

import (
	"context"
	"fmt"
	"io"
	"net/url"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	storageAdapter "github.com/tigerroll/querymetrics/pkg/batch/adapter/storage"
	storageConfig "github.com/tigerroll/querymetrics/pkg/batch/adapter/storage/config"
	coreConfig "github.com/tigerroll/querymetrics/pkg/batch/core/config"
)

// ProviderType defines the type identifier for this provider.
const ProviderType = "minio"

type minioAdapter struct {
	client *miniogo.Client
	bucket string
	name   string
}

var _ storageAdapter.StorageConnection = (*minioAdapter)(nil)

// NewMinioAdapter connects to cfg.Endpoint (host:port, or a URL whose scheme decides TLS).
func NewMinioAdapter(cfg storageConfig.StorageConfig, name string) (storageAdapter.StorageConnection, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio storage adapter '%s': endpoint must be specified", name)
	}
	endpoint, secure := cfg.Endpoint, cfg.UseSSL
	if u, err := url.Parse(cfg.Endpoint); err == nil && u.Host != "" {
		endpoint = u.Host
		secure = u.Scheme == "https"
	}

	client, err := miniogo.New(endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		Secure: secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return &minioAdapter{client: client, bucket: cfg.BucketName, name: name}, nil
}

func (a *minioAdapter) Close() error { return nil }
func (a *minioAdapter) Type() string { return ProviderType }
func (a *minioAdapter) Name() string { return a.name }

func (a *minioAdapter) bucketOr(bucket string) string {
	if bucket == "" {
		return a.bucket
	}
	return bucket
}

func (a *minioAdapter) Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error {
	_, err := a.client.PutObject(ctx, a.bucketOr(bucket), objectName, data, -1, miniogo.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("minio put %s/%s: %w", a.bucketOr(bucket), objectName, err)
	}
	return nil
}

// Download stats the object first because GetObject defers errors until the first read.
func (a *minioAdapter) Download(ctx context.Context, bucket, objectName string) (io.ReadCloser, error) {
	obj, err := a.client.GetObject(ctx, a.bucketOr(bucket), objectName, miniogo.GetObjectOptions{})
	if err != nil {
		return nil, a.wrapErr("get", bucket, objectName, err)
	}
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, a.wrapErr("stat", bucket, objectName, err)
	}
	return obj, nil
}

func (a *minioAdapter) ListObjects(ctx context.Context, bucket, prefix string, fn func(objectName string) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for info := range a.client.ListObjects(ctx, a.bucketOr(bucket), miniogo.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if info.Err != nil {
			return fmt.Errorf("minio list %s/%s: %w", a.bucketOr(bucket), prefix, info.Err)
		}
		if err := fn(info.Key); err != nil {
			return err
		}
	}
	return nil
}

func (a *minioAdapter) DeleteObject(ctx context.Context, bucket, objectName string) error {
	err := a.client.RemoveObject(ctx, a.bucketOr(bucket), objectName, miniogo.RemoveObjectOptions{})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("minio remove %s/%s: %w", a.bucketOr(bucket), objectName, err)
	}
	return nil
}

func (a *minioAdapter) wrapErr(op, bucket, objectName string, err error) error {
	if isNotFound(err) {
		return fmt.Errorf("%s/%s: %w", a.bucketOr(bucket), objectName, storageAdapter.ErrObjectNotFound)
	}
	return fmt.Errorf("minio %s %s/%s: %w", op, a.bucketOr(bucket), objectName, err)
}

func isNotFound(err error) bool {
	return miniogo.ToErrorResponse(err).Code == "NoSuchKey"
}

// NewMinioProvider creates the StorageProvider for "minio" connections.
func NewMinioProvider(cfg *coreConfig.Config) storageAdapter.StorageProvider {
	return storageAdapter.NewCachingProvider(ProviderType, cfg, NewMinioAdapter)
}
