package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{name: "default driver", cfg: Config{Endpoint: "localhost:9000"}},
		{name: "minio driver", cfg: Config{Driver: DriverMinIO, Endpoint: "http://localhost:9000", AccessKey: "ak", SecretKey: "sk"}},
		{name: "s3 driver", cfg: Config{Driver: DriverS3, Endpoint: "localhost:8084", AccessKey: "ak", SecretKey: "sk"}},
		{name: "unknown driver", cfg: Config{Driver: "ftp", Endpoint: "localhost:21"}, wantErr: ErrUnknownDriver},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.cfg)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, client)
		})
	}
}

func TestCleanEndpoint(t *testing.T) {
	tests := []struct {
		endpoint  string
		want      string
		wantHTTPS bool
		wantErr   bool
	}{
		{endpoint: "localhost:9000", want: "localhost:9000"},
		{endpoint: "http://localhost:9000", want: "localhost:9000"},
		{endpoint: "https://s3.example.com/", want: "s3.example.com", wantHTTPS: true},
		{endpoint: "https://gw.example.com:443", want: "gw.example.com:443", wantHTTPS: true},
		{endpoint: "", wantErr: true},
		{endpoint: "localhost:9000/bucket", wantErr: true},
		{endpoint: "http://localhost:9000/bucket", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			got, https, err := cleanEndpoint(tt.endpoint)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantHTTPS, https)
		})
	}
}

func TestEndpointURL(t *testing.T) {
	assert.Equal(t, "http://localhost:8084", endpointURL("localhost:8084", false))
	assert.Equal(t, "https://localhost:8084", endpointURL("localhost:8084", true))
	assert.Equal(t, "http://gw:80", endpointURL("http://gw:80", true))
}

func TestIsBucketAlreadyOwnedByYou(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error", nil, false},
		{"typed error", &types.BucketAlreadyOwnedByYou{}, true},
		{"generic api error", &smithy.GenericAPIError{Code: "BucketAlreadyOwnedByYou"}, true},
		{"other api error", &smithy.GenericAPIError{Code: "AccessDenied"}, false},
		{"plain error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isBucketAlreadyOwnedByYou(tt.err))
		})
	}
}

func TestIsMinIOBucketOwned(t *testing.T) {
	assert.True(t, isMinIOBucketOwned(minio.ErrorResponse{Code: "BucketAlreadyOwnedByYou"}))
	assert.False(t, isMinIOBucketOwned(minio.ErrorResponse{Code: "BucketAlreadyExists"}))
	assert.False(t, isMinIOBucketOwned(errors.New("boom")))
}

// mockS3 records calls made by AWSClient
type mockS3 struct {
	mu            sync.Mutex
	created       []*s3.CreateBucketInput
	versioned     []string
	puts          []*s3.PutObjectInput
	createErr     error
	versioningErr error
	putErr        error
}

func (m *mockS3) CreateBucket(_ context.Context, params *s3.CreateBucketInput, _ ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, params)
	return &s3.CreateBucketOutput{}, m.createErr
}

func (m *mockS3) PutBucketVersioning(_ context.Context, params *s3.PutBucketVersioningInput, _ ...func(*s3.Options)) (*s3.PutBucketVersioningOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.versioned = append(m.versioned, *params.Bucket)
	return &s3.PutBucketVersioningOutput{}, m.versioningErr
}

func (m *mockS3) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts = append(m.puts, params)
	return &s3.PutObjectOutput{}, m.putErr
}

func TestAWSClient_CreateBucket(t *testing.T) {
	t.Run("plain bucket", func(t *testing.T) {
		mock := &mockS3{}
		c := &AWSClient{s3: mock}

		name, err := c.CreateBucket(context.Background(), BucketOptions{})
		require.NoError(t, err)
		_, err = uuid.Parse(name)
		assert.NoError(t, err)

		require.Len(t, mock.created, 1)
		assert.Equal(t, name, *mock.created[0].Bucket)
		assert.Nil(t, mock.created[0].CreateBucketConfiguration)
		assert.Empty(t, mock.versioned)
	})

	t.Run("location and versioning", func(t *testing.T) {
		mock := &mockS3{}
		c := &AWSClient{s3: mock}

		name, err := c.CreateBucket(context.Background(), BucketOptions{Location: "load-1-4", Versioning: true})
		require.NoError(t, err)
		require.Len(t, mock.created, 1)
		assert.Equal(t, types.BucketLocationConstraint("load-1-4"),
			mock.created[0].CreateBucketConfiguration.LocationConstraint)
		assert.Equal(t, []string{name}, mock.versioned)
	})

	t.Run("already owned counts as created", func(t *testing.T) {
		mock := &mockS3{createErr: &types.BucketAlreadyOwnedByYou{}}
		c := &AWSClient{s3: mock}

		_, err := c.CreateBucket(context.Background(), BucketOptions{})
		assert.NoError(t, err)
	})

	t.Run("create failure", func(t *testing.T) {
		mock := &mockS3{createErr: errors.New("access denied")}
		c := &AWSClient{s3: mock}

		name, err := c.CreateBucket(context.Background(), BucketOptions{Versioning: true})
		assert.Error(t, err)
		assert.Empty(t, name)
		assert.Empty(t, mock.versioned)
	})

	t.Run("versioning failure fails the bucket", func(t *testing.T) {
		mock := &mockS3{versioningErr: errors.New("not implemented")}
		c := &AWSClient{s3: mock}

		name, err := c.CreateBucket(context.Background(), BucketOptions{Versioning: true})
		assert.ErrorContains(t, err, "versioning")
		assert.Empty(t, name)
	})
}

func TestAWSClient_UploadObject(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data_file")
	require.NoError(t, os.WriteFile(path, make([]byte, 2048), 0o644))

	t.Run("success", func(t *testing.T) {
		mock := &mockS3{}
		c := &AWSClient{s3: mock}

		key, err := c.UploadObject(context.Background(), "bucket-1", path)
		require.NoError(t, err)
		require.Len(t, mock.puts, 1)
		assert.Equal(t, "bucket-1", *mock.puts[0].Bucket)
		assert.Equal(t, key, *mock.puts[0].Key)
		assert.Equal(t, int64(2048), *mock.puts[0].ContentLength)
	})

	t.Run("put failure", func(t *testing.T) {
		c := &AWSClient{s3: &mockS3{putErr: errors.New("slow down")}}

		key, err := c.UploadObject(context.Background(), "bucket-1", path)
		assert.Error(t, err)
		assert.Empty(t, key)
	})

	t.Run("missing payload", func(t *testing.T) {
		mock := &mockS3{}
		c := &AWSClient{s3: mock}

		_, err := c.UploadObject(context.Background(), "bucket-1", filepath.Join(t.TempDir(), "nope"))
		assert.Error(t, err)
		assert.Empty(t, mock.puts)
	})
}
