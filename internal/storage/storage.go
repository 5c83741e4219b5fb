// Package storage fetches raw inbound e-mails from the S3 bucket the
// mail receipt rule writes them to.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// maxRetries is the maximum number of retry attempts for transient failures.
const maxRetries = 3

// baseRetryDelay is the initial delay for exponential backoff.
const baseRetryDelay = 1 * time.Second

// ErrNotFound is returned when no raw e-mail exists under the requested key.
var ErrNotFound = errors.New("raw e-mail not found")

// StoreConfig holds the configuration for creating a Store.
type StoreConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Folder          string
}

// GetObjectAPI is the interface for the S3 GetObject operation.
// Used for testing with mock implementations.
type GetObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Store reads raw e-mail blobs keyed by folder prefix + message ID.
type Store struct {
	bucket string
	folder string
	client GetObjectAPI
}

// New creates a Store backed by S3 with the given configuration.
func New(ctx context.Context, cfg StoreConfig) (*Store, error) {
	var opts []func(*awsconfig.LoadOptions) error

	opts = append(opts, awsconfig.WithRegion(cfg.Region))

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &Store{
		bucket: cfg.Bucket,
		folder: cfg.Folder,
		client: s3.NewFromConfig(awsCfg),
	}, nil
}

// NewWithClient creates a Store with a custom client, used for testing.
func NewWithClient(bucket, folder string, client GetObjectAPI) *Store {
	return &Store{
		bucket: bucket,
		folder: folder,
		client: client,
	}
}

// RawEmail fetches the raw e-mail stored for messageID. A missing object
// maps to ErrNotFound; transient failures are retried with exponential
// backoff.
func (s *Store) RawEmail(ctx context.Context, messageID string) ([]byte, error) {
	key := path.Join(s.folder, messageID)

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := backoffDelay(attempt)
			slog.Debug("retrying raw e-mail fetch",
				"attempt", attempt,
				"key", key,
			)
			if err := sleepWithContext(ctx, delay); err != nil {
				return nil, fmt.Errorf("context cancelled during retry wait: %w", err)
			}
		}

		out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			var noSuchKey *types.NoSuchKey
			if errors.As(err, &noSuchKey) {
				return nil, fmt.Errorf("%w: s3://%s/%s", ErrNotFound, s.bucket, key)
			}
			lastErr = err
			slog.Warn("raw e-mail fetch error",
				"attempt", attempt,
				"key", key,
				"error", err,
			)
			continue
		}

		body, err := io.ReadAll(out.Body)
		out.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		return body, nil
	}

	return nil, fmt.Errorf("raw e-mail fetch failed after %d retries: %w", maxRetries, lastErr)
}

// backoffDelay returns the exponential backoff delay for the given attempt
// number.
func backoffDelay(attempt int) time.Duration {
	delay := baseRetryDelay
	for i := 0; i < attempt; i++ {
		delay *= 2
	}
	return delay
}

// sleepWithContext waits for the specified duration or until the context
// is cancelled.
func sleepWithContext(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
