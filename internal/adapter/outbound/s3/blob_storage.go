package s3

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/sony/gobreaker/v2"

	"github.com/uniedit/photos/internal/port/outbound"
)

// maxDeleteBatch is the S3 limit on keys per DeleteObjects call.
const maxDeleteBatch = 1000

// ErrStorageUnavailable is returned while the circuit breaker is open.
var ErrStorageUnavailable = outbound.ErrBlobStoreUnavailable

// Config holds S3-compatible storage configuration.
type Config struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UsePathStyle    bool
}

// DeleteObjectsAPI is the part of the S3 client the adapter uses.
type DeleteObjectsAPI interface {
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

// NewClient creates an S3 client. A custom endpoint selects an S3-compatible
// service such as R2 or MinIO; static credentials are used when given.
func NewClient(ctx context.Context, cfg *Config) (*s3.Client, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("incomplete storage configuration: bucket is required")
	}

	region := cfg.Region
	if region == "" {
		region = "auto"
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	}), nil
}

// BlobStorageAdapter implements BlobStoragePort on S3. Calls go through a
// circuit breaker so a failing bucket does not stall every purge.
type BlobStorageAdapter struct {
	client  DeleteObjectsAPI
	bucket  string
	breaker *gobreaker.CircuitBreaker[any]
}

// NewBlobStorageAdapter creates a new blob storage adapter.
func NewBlobStorageAdapter(client DeleteObjectsAPI, bucket string) *BlobStorageAdapter {
	settings := gobreaker.Settings{
		Name:        "s3:" + bucket,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}

	return &BlobStorageAdapter{
		client:  client,
		bucket:  bucket,
		breaker: gobreaker.NewCircuitBreaker[any](settings),
	}
}

// Delete removes objects in batches. Missing keys are not an error.
func (a *BlobStorageAdapter) Delete(ctx context.Context, keys []string) error {
	for i := 0; i < len(keys); i += maxDeleteBatch {
		end := min(i+maxDeleteBatch, len(keys))

		_, err := a.breaker.Execute(func() (any, error) {
			return nil, a.deleteBatch(ctx, keys[i:end])
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (a *BlobStorageAdapter) deleteBatch(ctx context.Context, keys []string) error {
	objects := make([]types.ObjectIdentifier, 0, len(keys))
	for _, key := range keys {
		objects = append(objects, types.ObjectIdentifier{Key: aws.String(key)})
	}

	out, err := a.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(a.bucket),
		Delete: &types.Delete{
			Objects: objects,
			Quiet:   aws.Bool(true),
		},
	})
	if err != nil {
		return fmt.Errorf("delete objects: %w", err)
	}

	// Quiet mode reports only failed keys.
	if out != nil && len(out.Errors) > 0 {
		failed := make([]string, 0, len(out.Errors))
		for _, e := range out.Errors {
			failed = append(failed, fmt.Sprintf("%s (%s)", aws.ToString(e.Key), aws.ToString(e.Code)))
		}
		return fmt.Errorf("delete objects: %d failed: %s", len(out.Errors), strings.Join(failed, ", "))
	}
	return nil
}

// State returns the circuit breaker state.
func (a *BlobStorageAdapter) State() gobreaker.State {
	return a.breaker.State()
}

// Compile-time check
var _ outbound.BlobStoragePort = (*BlobStorageAdapter)(nil)
