// Package s3 stores objects in Amazon S3 (or any S3-compatible endpoint).
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	storageAdapter "github.com/tigerroll/querymetrics/pkg/batch/adapter/storage"
	storageConfig "github.com/tigerroll/querymetrics/pkg/batch/adapter/storage/config"
	coreConfig "github.com/tigerroll/querymetrics/pkg/batch/core/config"
)

// ProviderType defines the type identifier for this provider.
const ProviderType = "s3"

// API is the subset of the S3 client used by the adapter.
type API interface {
	manager.UploadAPIClient
	GetObject(ctx context.Context, params *awss3.GetObjectInput, optFns ...func(*awss3.Options)) (*awss3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *awss3.ListObjectsV2Input, optFns ...func(*awss3.Options)) (*awss3.ListObjectsV2Output, error)
	DeleteObject(ctx context.Context, params *awss3.DeleteObjectInput, optFns ...func(*awss3.Options)) (*awss3.DeleteObjectOutput, error)
}

type s3Adapter struct {
	client   API
	uploader *manager.Uploader
	bucket   string
	name     string
}

var _ storageAdapter.StorageConnection = (*s3Adapter)(nil)

// NewS3Adapter builds a client from the default AWS credential chain, or from
// static keys when access_key_id is set.
func NewS3Adapter(cfg storageConfig.StorageConfig, name string) (storageAdapter.StorageConnection, error) {
	var opts []func(*awsConfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsConfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsConfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken)))
	}
	awsCfg, err := awsConfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return NewS3AdapterWithClient(client, cfg.BucketName, name), nil
}

// NewS3AdapterWithClient wraps an existing client. defaultBucket is used when a call passes none.
func NewS3AdapterWithClient(client API, defaultBucket, name string) storageAdapter.StorageConnection {
	return &s3Adapter{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   defaultBucket,
		name:     name,
	}
}

func (a *s3Adapter) Close() error { return nil }
func (a *s3Adapter) Type() string { return ProviderType }
func (a *s3Adapter) Name() string { return a.name }

func (a *s3Adapter) bucketOr(bucket string) string {
	if bucket == "" {
		return a.bucket
	}
	return bucket
}

func (a *s3Adapter) Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error {
	input := &awss3.PutObjectInput{
		Bucket: aws.String(a.bucketOr(bucket)),
		Key:    aws.String(objectName),
		Body:   data,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := a.uploader.Upload(ctx, input); err != nil {
		return fmt.Errorf("s3 upload %s/%s: %w", a.bucketOr(bucket), objectName, err)
	}
	return nil
}

func (a *s3Adapter) Download(ctx context.Context, bucket, objectName string) (io.ReadCloser, error) {
	out, err := a.client.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(a.bucketOr(bucket)),
		Key:    aws.String(objectName),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%s/%s: %w", a.bucketOr(bucket), objectName, storageAdapter.ErrObjectNotFound)
		}
		return nil, fmt.Errorf("s3 get %s/%s: %w", a.bucketOr(bucket), objectName, err)
	}
	return out.Body, nil
}

func (a *s3Adapter) ListObjects(ctx context.Context, bucket, prefix string, fn func(objectName string) error) error {
	paginator := awss3.NewListObjectsV2Paginator(a.client, &awss3.ListObjectsV2Input{
		Bucket: aws.String(a.bucketOr(bucket)),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("s3 list %s/%s: %w", a.bucketOr(bucket), prefix, err)
		}
		for _, obj := range page.Contents {
			if err := fn(aws.ToString(obj.Key)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (a *s3Adapter) DeleteObject(ctx context.Context, bucket, objectName string) error {
	_, err := a.client.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(a.bucketOr(bucket)),
		Key:    aws.String(objectName),
	})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("s3 delete %s/%s: %w", a.bucketOr(bucket), objectName, err)
	}
	return nil
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}

// NewS3Provider creates the StorageProvider for "s3" connections.
func NewS3Provider(cfg *coreConfig.Config) storageAdapter.StorageProvider {
	return storageAdapter.NewCachingProvider(ProviderType, cfg, NewS3Adapter)
}
