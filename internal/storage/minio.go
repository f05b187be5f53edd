package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOClient implements the Client interface using minio-go
type MinIOClient struct {
	client *minio.Client
}

// NewMinIOClient creates a new MinIO client
func NewMinIOClient(cfg Config) (*MinIOClient, error) {
	endpoint, https, err := cleanEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint: %w", err)
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  newCredentials(cfg),
		Secure: cfg.Secure || https,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, err
	}

	return &MinIOClient{client: client}, nil
}

// newCredentials uses static keys when configured and otherwise falls back
// to the usual AWS/MinIO environment variables and the AWS credentials file.
func newCredentials(cfg Config) *credentials.Credentials {
	if cfg.AccessKey != "" {
		return credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, "")
	}
	return credentials.NewChainCredentials([]credentials.Provider{
		&credentials.EnvAWS{},
		&credentials.EnvMinio{},
		&credentials.FileAWSCredentials{},
	})
}

// cleanEndpoint removes protocol and path from endpoint URL to get host:port format.
// It also reports whether the endpoint asked for https.
func cleanEndpoint(endpoint string) (string, bool, error) {
	if endpoint == "" {
		return "", false, fmt.Errorf("endpoint cannot be empty")
	}

	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		if strings.Contains(endpoint, "/") {
			return "", false, fmt.Errorf("endpoint contains path but no protocol")
		}
		return endpoint, false, nil
	}

	parsedURL, err := url.Parse(endpoint)
	if err != nil {
		return "", false, fmt.Errorf("failed to parse endpoint URL: %w", err)
	}

	if parsedURL.Path != "" && parsedURL.Path != "/" {
		return "", false, fmt.Errorf("endpoint URL cannot have paths, only host:port is allowed (got path: %s)", parsedURL.Path)
	}

	return parsedURL.Host, parsedURL.Scheme == "https", nil
}

// CreateBucket creates a uniquely named bucket and enables versioning when requested
func (c *MinIOClient) CreateBucket(ctx context.Context, opts BucketOptions) (string, error) {
	name := uuid.NewString()

	err := c.client.MakeBucket(ctx, name, minio.MakeBucketOptions{Region: opts.Location})
	if err != nil && !isMinIOBucketOwned(err) {
		return "", fmt.Errorf("failed to create bucket %s: %w", name, err)
	}

	if opts.Versioning {
		if err := c.client.EnableVersioning(ctx, name); err != nil {
			return "", fmt.Errorf("failed to enable versioning for bucket %s: %w", name, err)
		}
	}

	return name, nil
}

// UploadObject uploads the payload file under a unique key
func (c *MinIOClient) UploadObject(ctx context.Context, bucket, payloadPath string) (string, error) {
	key := uuid.NewString()

	_, err := c.client.FPutObject(ctx, bucket, key, payloadPath, minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return "", fmt.Errorf("failed to put object %s in bucket %s: %w", key, bucket, err)
	}

	return key, nil
}

func isMinIOBucketOwned(err error) bool {
	return minio.ToErrorResponse(err).Code == "BucketAlreadyOwnedByYou"
}
