package storage

import (
	"context"
	"errors"
	"fmt"
)

// Supported storage drivers
const (
	DriverMinIO = "minio"
	DriverS3    = "s3"
)

// ErrUnknownDriver is returned by NewClient for an unsupported driver name
var ErrUnknownDriver = errors.New("unknown storage driver")

// Client defines the S3-compatible operations used by the preset
type Client interface {
	// CreateBucket creates a bucket with a generated name and returns that name
	CreateBucket(ctx context.Context, opts BucketOptions) (string, error)
	// UploadObject stores the file at payloadPath under a generated key and returns the key
	UploadObject(ctx context.Context, bucket, payloadPath string) (string, error)
}

// BucketOptions contains options for bucket creation
type BucketOptions struct {
	Location   string
	Versioning bool
}

// Config contains client configuration
type Config struct {
	Driver    string
	Endpoint  string
	AccessKey string
	SecretKey string
	Secure    bool
	Region    string
}

// NewClient creates a client for the configured driver
func NewClient(cfg Config) (Client, error) {
	switch cfg.Driver {
	case DriverMinIO, "":
		return NewMinIOClient(cfg)
	case DriverS3:
		return NewAWSClient(context.Background(), cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}
