// Package recordstore implements the secondary, best-effort sync backend:
// the user entity is flattened to a JSON record and pushed to an object
// store bucket. Failures retry with a bounded linear backoff and are
// reported through a result callback, never into the caller's synchronous
// path.
package recordstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sethvargo/go-retry"

	"github.com/infinitumhq/infinitum/internal/codec"
	"github.com/infinitumhq/infinitum/internal/logging"
	"github.com/infinitumhq/infinitum/internal/models"
)

const (
	// maxRetries bounds the attempts made after the first failure.
	maxRetries = 3
	// defaultBackoffUnit is the base delay; retry k waits k units.
	defaultBackoffUnit = time.Second
)

var loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

// Config holds the object store settings.
type Config struct {
	Bucket       string
	Region       string
	BaseEndpoint string
	AccessKey    string
	SecretKey    string
}

// objectAPI is the slice of the S3 client the record store uses.
type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Client pushes user records to the object store.
type Client struct {
	api         objectAPI
	bucket      string
	backoffUnit time.Duration
	log         logging.Logger
}

// New builds a record store client from config.
func New(ctx context.Context, cfg Config, log logging.Logger) (*Client, error) {
	awsCfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey, cfg.SecretKey, "")))
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	api := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.BaseEndpoint)
		}
	})

	return &Client{
		api:         api,
		bucket:      cfg.Bucket,
		backoffUnit: defaultBackoffUnit,
		log:         log,
	}, nil
}

// RecordKey is the object key under which a user record lives.
func RecordKey(userID string) string {
	return fmt.Sprintf("records/users/%s.json", userID)
}

// SyncRecord writes the user record asynchronously. The attempt retries up
// to maxRetries times, waiting k backoff units before retry k; the final
// outcome reaches done (which may be nil). SyncRecord itself never blocks.
func (c *Client) SyncRecord(ctx context.Context, u *models.User, done func(error)) {
	body, err := json.Marshal(codec.UserToDocument(u))
	if err != nil {
		c.report(ctx, done, fmt.Errorf("encode record: %w", err))
		return
	}
	key := RecordKey(u.ID)

	go func() {
		err := retry.Do(ctx, c.backoff(), func(ctx context.Context) error {
			_, err := c.api.PutObject(ctx, &s3.PutObjectInput{
				Bucket:      aws.String(c.bucket),
				Key:         aws.String(key),
				Body:        bytes.NewReader(body),
				ContentType: aws.String("application/json"),
			})
			if err != nil {
				return retry.RetryableError(err)
			}
			return nil
		})
		c.report(ctx, done, err)
	}()
}

// DeleteRecord removes the user record asynchronously with the same retry
// policy as SyncRecord.
func (c *Client) DeleteRecord(ctx context.Context, userID string, done func(error)) {
	key := RecordKey(userID)

	go func() {
		err := retry.Do(ctx, c.backoff(), func(ctx context.Context) error {
			_, err := c.api.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(c.bucket),
				Key:    aws.String(key),
			})
			if err != nil {
				return retry.RetryableError(err)
			}
			return nil
		})
		c.report(ctx, done, err)
	}()
}

func (c *Client) report(ctx context.Context, done func(error), err error) {
	if err != nil {
		c.log.Warn(ctx, "record sync failed", "error", err)
	}
	if done != nil {
		done(err)
	}
}

func (c *Client) backoff() retry.Backoff {
	return retry.WithMaxRetries(maxRetries, linearBackoff(c.backoffUnit))
}

// linearBackoff waits attempt×unit before each retry.
func linearBackoff(unit time.Duration) retry.Backoff {
	var attempt int64
	return retry.BackoffFunc(func() (time.Duration, bool) {
		n := atomic.AddInt64(&attempt, 1)
		return time.Duration(n) * unit, false
	})
}
