package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"
)

const defaultRegion = "us-east-1"

// s3API is the subset of the AWS S3 client used by AWSClient
type s3API interface {
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	PutBucketVersioning(ctx context.Context, params *s3.PutBucketVersioningInput, optFns ...func(*s3.Options)) (*s3.PutBucketVersioningOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// AWSClient implements the Client interface using aws-sdk-go-v2
type AWSClient struct {
	s3 s3API
}

// NewAWSClient creates an S3 client for the configured endpoint.
// Path-style addressing is used since generated bucket names are not
// resolvable as virtual hosts on most gateways.
func NewAWSClient(ctx context.Context, cfg Config) (*AWSClient, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("invalid endpoint: endpoint cannot be empty")
	}

	region := cfg.Region
	if region == "" {
		region = defaultRegion
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	endpoint := endpointURL(cfg.Endpoint, cfg.Secure)
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	return &AWSClient{s3: client}, nil
}

// endpointURL adds a scheme to bare host:port endpoints
func endpointURL(endpoint string, secure bool) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	if secure {
		return "https://" + endpoint
	}
	return "http://" + endpoint
}

// CreateBucket creates a uniquely named bucket and enables versioning when requested
func (c *AWSClient) CreateBucket(ctx context.Context, opts BucketOptions) (string, error) {
	name := uuid.NewString()

	input := &s3.CreateBucketInput{Bucket: aws.String(name)}
	if opts.Location != "" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(opts.Location),
		}
	}

	if _, err := c.s3.CreateBucket(ctx, input); err != nil && !isBucketAlreadyOwnedByYou(err) {
		return "", fmt.Errorf("failed to create bucket %s: %w", name, err)
	}

	if opts.Versioning {
		_, err := c.s3.PutBucketVersioning(ctx, &s3.PutBucketVersioningInput{
			Bucket: aws.String(name),
			VersioningConfiguration: &types.VersioningConfiguration{
				Status: types.BucketVersioningStatusEnabled,
			},
		})
		if err != nil {
			return "", fmt.Errorf("failed to enable versioning for bucket %s: %w", name, err)
		}
	}

	return name, nil
}

// UploadObject uploads the payload file under a unique key
func (c *AWSClient) UploadObject(ctx context.Context, bucket, payloadPath string) (string, error) {
	key := uuid.NewString()

	f, err := os.Open(payloadPath)
	if err != nil {
		return "", fmt.Errorf("failed to open payload: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat payload: %w", err)
	}

	_, err = c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
	})
	if err != nil {
		return "", fmt.Errorf("failed to put object %s in bucket %s: %w", key, bucket, err)
	}

	return key, nil
}

// isBucketAlreadyOwnedByYou checks if the error indicates the bucket exists and is owned by us.
func isBucketAlreadyOwnedByYou(err error) bool {
	if err == nil {
		return false
	}

	var baoby *types.BucketAlreadyOwnedByYou
	if errors.As(err, &baoby) {
		return true
	}

	// S3-compatible gateways may not return the exact SDK error types
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode() == "BucketAlreadyOwnedByYou"
	}

	return false
}
