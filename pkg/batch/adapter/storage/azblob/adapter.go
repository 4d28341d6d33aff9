// Package azblob stores objects in Azure Blob Storage. Buckets map to containers.
package azblob

import (
	"context"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"

	storageAdapter "github.com/tigerroll/querymetrics/pkg/batch/adapter/storage"
	storageConfig "github.com/tigerroll/querymetrics/pkg/batch/adapter/storage/config"
	coreConfig "github.com/tigerroll/querymetrics/pkg/batch/core/config"
)

// ProviderType defines the type identifier for this provider.
const ProviderType = "azblob"

type azblobAdapter struct {
	client    *azblob.Client
	container string
	name      string
}

var _ storageAdapter.StorageConnection = (*azblobAdapter)(nil)

func serviceURL(cfg storageConfig.StorageConfig) string {
	if cfg.ServiceURL != "" {
		return cfg.ServiceURL
	}
	return fmt.Sprintf("https://%s.blob.core.windows.net/", cfg.AccountName)
}

// NewAzblobAdapter authenticates with the account key when one is configured.
// Otherwise service_url is expected to carry a SAS token.
func NewAzblobAdapter(cfg storageConfig.StorageConfig, name string) (storageAdapter.StorageConnection, error) {
	if cfg.AccountName == "" && cfg.ServiceURL == "" {
		return nil, fmt.Errorf("azblob storage adapter '%s': account_name or service_url must be specified", name)
	}

	var (
		client *azblob.Client
		err    error
	)
	if cfg.AccountKey != "" {
		cred, credErr := azblob.NewSharedKeyCredential(cfg.AccountName, cfg.AccountKey)
		if credErr != nil {
			return nil, fmt.Errorf("create shared key credential: %w", credErr)
		}
		client, err = azblob.NewClientWithSharedKeyCredential(serviceURL(cfg), cred, nil)
	} else {
		client, err = azblob.NewClientWithNoCredential(serviceURL(cfg), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("create Azure blob client: %w", err)
	}
	return &azblobAdapter{client: client, container: cfg.BucketName, name: name}, nil
}

func (a *azblobAdapter) Close() error { return nil }
func (a *azblobAdapter) Type() string { return ProviderType }
func (a *azblobAdapter) Name() string { return a.name }

func (a *azblobAdapter) containerOr(bucket string) string {
	if bucket == "" {
		return a.container
	}
	return bucket
}

func (a *azblobAdapter) Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error {
	opts := &azblob.UploadStreamOptions{}
	if contentType != "" {
		opts.HTTPHeaders = &blob.HTTPHeaders{BlobContentType: &contentType}
	}
	if _, err := a.client.UploadStream(ctx, a.containerOr(bucket), objectName, data, opts); err != nil {
		return fmt.Errorf("azblob upload %s/%s: %w", a.containerOr(bucket), objectName, err)
	}
	return nil
}

func (a *azblobAdapter) Download(ctx context.Context, bucket, objectName string) (io.ReadCloser, error) {
	resp, err := a.client.DownloadStream(ctx, a.containerOr(bucket), objectName, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			return nil, fmt.Errorf("%s/%s: %w", a.containerOr(bucket), objectName, storageAdapter.ErrObjectNotFound)
		}
		return nil, fmt.Errorf("azblob download %s/%s: %w", a.containerOr(bucket), objectName, err)
	}
	return resp.Body, nil
}

func (a *azblobAdapter) ListObjects(ctx context.Context, bucket, prefix string, fn func(objectName string) error) error {
	pager := a.client.NewListBlobsFlatPager(a.containerOr(bucket), &azblob.ListBlobsFlatOptions{Prefix: &prefix})
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("azblob list %s/%s: %w", a.containerOr(bucket), prefix, err)
		}
		for _, item := range page.Segment.BlobItems {
			if item.Name == nil {
				continue
			}
			if err := fn(*item.Name); err != nil {
				return err
			}
		}
	}
	return nil
}

func (a *azblobAdapter) DeleteObject(ctx context.Context, bucket, objectName string) error {
	_, err := a.client.DeleteBlob(ctx, a.containerOr(bucket), objectName, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.BlobNotFound) {
		return fmt.Errorf("azblob delete %s/%s: %w", a.containerOr(bucket), objectName, err)
	}
	return nil
}

// NewAzblobProvider creates the StorageProvider for "azblob" connections.
func NewAzblobProvider(cfg *coreConfig.Config) storageAdapter.StorageProvider {
	return storageAdapter.NewCachingProvider(ProviderType, cfg, NewAzblobAdapter)
}
