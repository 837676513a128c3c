package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/dmitrijs2005/hashdrive/internal/hasher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	puts    int
	failAll error
}

func newFakeS3() *fakeS3 { return &fakeS3{objects: map[string][]byte{}} }

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.failAll != nil {
		return nil, f.failAll
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[*in.Bucket+"/"+*in.Key] = data
	f.puts++
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.failAll != nil {
		return nil, f.failAll
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[*in.Bucket+"/"+*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if f.failAll != nil {
		return nil, f.failAll
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[*in.Bucket+"/"+*in.Key]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, *in.Bucket+"/"+*in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3Backend_Contract(t *testing.T) {
	backendContract(t, NewS3BackendWithClient(newFakeS3(), "vault"))
}

func TestS3Backend_KeyLayoutAndIdempotentPut(t *testing.T) {
	f := newFakeS3()
	b := NewS3BackendWithClient(f, "vault")
	fp := hasher.Sum([]byte("hello"))

	require.NoError(t, b.Put(context.Background(), fp, []byte("hello")))
	require.NoError(t, b.Put(context.Background(), fp, []byte("hello")))

	assert.Equal(t, 1, f.puts)
	assert.Contains(t, f.objects, "vault/blobs/2c/"+fp.String())
}

func TestS3Backend_TransportErrors(t *testing.T) {
	f := newFakeS3()
	f.failAll = errors.New("connection refused")
	b := NewS3BackendWithClient(f, "vault")
	fp := hasher.Sum([]byte("x"))

	assert.ErrorIs(t, b.Put(context.Background(), fp, []byte("x")), ErrIOFailure)
	_, err := b.Get(context.Background(), fp)
	assert.ErrorIs(t, err, ErrIOFailure)
	_, err = b.Has(context.Background(), fp)
	assert.ErrorIs(t, err, ErrIOFailure)
}

func TestNewS3Backend_AppliesOptions(t *testing.T) {
	origLoad, origNew := loadDefaultAWSConfig, newS3ClientFromConfig
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNew
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		assert.Equal(t, "eu-central-1", lo.Region)
		creds, err := lo.Credentials.Retrieve(ctx)
		require.NoError(t, err)
		assert.Equal(t, "minio", creds.AccessKeyID)
		assert.Equal(t, "minio123", creds.SecretAccessKey)
		return aws.Config{Region: lo.Region}, nil
	}

	var applied s3.Options
	fake := newFakeS3()
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) S3API {
		for _, fn := range optFns {
			fn(&applied)
		}
		return fake
	}

	b, err := NewS3Backend(context.Background(), S3Options{
		User: "minio", Password: "minio123", Bucket: "vault", Region: "eu-central-1", Endpoint: "http://minio:9000",
	})
	require.NoError(t, err)
	assert.Equal(t, "vault", b.bucket)
	assert.Equal(t, "http://minio:9000", aws.ToString(applied.BaseEndpoint))
	assert.True(t, applied.UsePathStyle)
}

func TestNewS3Backend_ConfigError(t *testing.T) {
	orig := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = orig })

	loadDefaultAWSConfig = func(context.Context, ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no config")
	}
	_, err := NewS3Backend(context.Background(), S3Options{})
	assert.Error(t, err)
}
