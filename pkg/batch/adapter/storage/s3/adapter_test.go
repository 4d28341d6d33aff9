package s3

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storageAdapter "github.com/tigerroll/querymetrics/pkg/batch/adapter/storage"
)

type fakeS3 struct {
	mu          sync.Mutex
	objects     map[string][]byte
	contentType map[string]string
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, contentType: map[string]string{}}
}

func key(bucket, k *string) string { return aws.ToString(bucket) + "/" + aws.ToString(k) }

func (f *fakeS3) PutObject(ctx context.Context, in *awss3.PutObjectInput, _ ...func(*awss3.Options)) (*awss3.PutObjectOutput, error) {
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key(in.Bucket, in.Key)] = body
	f.contentType[key(in.Bucket, in.Key)] = aws.ToString(in.ContentType)
	return &awss3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *awss3.GetObjectInput, _ ...func(*awss3.Options)) (*awss3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	body, ok := f.objects[key(in.Bucket, in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &awss3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(string(body)))}, nil
}

func (f *fakeS3) ListObjectsV2(ctx context.Context, in *awss3.ListObjectsV2Input, _ ...func(*awss3.Options)) (*awss3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := &awss3.ListObjectsV2Output{}
	prefix := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Prefix)
	for k := range f.objects {
		if strings.HasPrefix(k, prefix) {
			out.Contents = append(out.Contents, types.Object{Key: aws.String(strings.TrimPrefix(k, aws.ToString(in.Bucket)+"/"))})
		}
	}
	return out, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *awss3.DeleteObjectInput, _ ...func(*awss3.Options)) (*awss3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key(in.Bucket, in.Key))
	return &awss3.DeleteObjectOutput{}, nil
}

var errMultipart = errors.New("multipart not expected")

func (f *fakeS3) UploadPart(context.Context, *awss3.UploadPartInput, ...func(*awss3.Options)) (*awss3.UploadPartOutput, error) {
	return nil, errMultipart
}

func (f *fakeS3) CreateMultipartUpload(context.Context, *awss3.CreateMultipartUploadInput, ...func(*awss3.Options)) (*awss3.CreateMultipartUploadOutput, error) {
	return nil, errMultipart
}

func (f *fakeS3) CompleteMultipartUpload(context.Context, *awss3.CompleteMultipartUploadInput, ...func(*awss3.Options)) (*awss3.CompleteMultipartUploadOutput, error) {
	return nil, errMultipart
}

func (f *fakeS3) AbortMultipartUpload(context.Context, *awss3.AbortMultipartUploadInput, ...func(*awss3.Options)) (*awss3.AbortMultipartUploadOutput, error) {
	return nil, errMultipart
}

func TestS3Adapter_UploadDownloadDelete(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	conn := NewS3AdapterWithClient(fake, "default-bucket", "cursors")

	require.NoError(t, conn.Upload(ctx, "", "marker.txt", strings.NewReader("exec-9"), "text/plain"))
	assert.Equal(t, "text/plain", fake.contentType["default-bucket/marker.txt"])

	rc, err := conn.Download(ctx, "default-bucket", "marker.txt")
	require.NoError(t, err)
	body, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "exec-9", string(body))

	require.NoError(t, conn.DeleteObject(ctx, "", "marker.txt"))
	_, err = conn.Download(ctx, "", "marker.txt")
	assert.True(t, storageAdapter.IsNotFound(err))
}

func TestS3Adapter_ListObjects(t *testing.T) {
	ctx := context.Background()
	conn := NewS3AdapterWithClient(newFakeS3(), "b", "results")
	require.NoError(t, conn.Upload(ctx, "b", "data/billingperiod=2024-03-01/x_y.csv.gz", strings.NewReader("1"), ""))
	require.NoError(t, conn.Upload(ctx, "b", "other/z", strings.NewReader("1"), ""))

	var names []string
	require.NoError(t, conn.ListObjects(ctx, "b", "data/", func(n string) error {
		names = append(names, n)
		return nil
	}))
	assert.Equal(t, []string{"data/billingperiod=2024-03-01/x_y.csv.gz"}, names)
	assert.Equal(t, ProviderType, conn.Type())
}
