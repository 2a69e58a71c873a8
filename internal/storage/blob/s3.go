// Package blob stores version content in tiered object storage.
package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	editingRepo "casefile/internal/domain/repositories/editing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

var loadDefaultAWSConfig = config.LoadDefaultConfig

// s3API is the subset of *s3.Client the store uses
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	RestoreObject(ctx context.Context, in *s3.RestoreObjectInput, optFns ...func(*s3.Options)) (*s3.RestoreObjectOutput, error)
}

// S3Config configures the S3 content store
type S3Config struct {
	Bucket      string
	Region      string
	Endpoint    string // Empty uses the AWS endpoint resolver
	AccessKey   string
	SecretKey   string
	RestoreDays int
	RestoreTier string // Expedited, Standard or Bulk
}

// S3Store implements ContentStore on S3. Lifecycle rules on the bucket move
// objects to Glacier classes; this store only reads, writes and restores.
type S3Store struct {
	client      s3API
	bucket      string
	restoreDays int32
	restoreTier types.Tier
	logger      *slog.Logger
}

// NewS3Store builds the S3 client and returns the store
func NewS3Store(ctx context.Context, cfg S3Config, logger *slog.Logger) (*S3Store, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return newS3Store(client, cfg, logger), nil
}

func newS3Store(client s3API, cfg S3Config, logger *slog.Logger) *S3Store {
	if logger == nil {
		logger = slog.Default()
	}
	tier := types.Tier(cfg.RestoreTier)
	if tier == "" {
		tier = types.TierStandard
	}
	days := cfg.RestoreDays
	if days < 1 {
		days = 1
	}
	return &S3Store{
		client:      client,
		bucket:      cfg.Bucket,
		restoreDays: int32(days),
		restoreTier: tier,
		logger:      logger,
	}
}

// Put writes content under key
func (s *S3Store) Put(ctx context.Context, key string, content []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(content),
		ContentType: aws.String("text/plain; charset=utf-8"),
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	return nil
}

// Get reads content. An archived object without a restored copy fails with
// ErrContentArchived.
func (s *S3Store) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if apiErrorCode(err) == "InvalidObjectState" {
			return nil, fmt.Errorf("get object %s: %w", key, editingRepo.ErrContentArchived)
		}
		return nil, fmt.Errorf("get object %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", key, err)
	}
	return data, nil
}

// RequestRestore starts a Glacier restore of key
func (s *S3Store) RequestRestore(ctx context.Context, key string) error {
	_, err := s.client.RestoreObject(ctx, &s3.RestoreObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		RestoreRequest: &types.RestoreRequest{
			Days: aws.Int32(s.restoreDays),
			GlacierJobParameters: &types.GlacierJobParameters{
				Tier: s.restoreTier,
			},
		},
	})
	if err != nil {
		switch apiErrorCode(err) {
		case "RestoreAlreadyInProgress":
			return nil
		case "InvalidObjectState":
			// Not in an archive class; the object is readable as is
			s.logger.Debug("restore requested for non-archived object", "key", key)
			return nil
		}
		return fmt.Errorf("restore object %s: %w", key, err)
	}
	return nil
}

// RestoreStatus reads the x-amz-restore header of key
func (s *S3Store) RestoreStatus(ctx context.Context, key string) (editingRepo.RestoreStatus, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", fmt.Errorf("head object %s: %w", key, err)
	}
	if out.Restore == nil {
		if isArchiveClass(out.StorageClass) {
			return editingRepo.RestoreNone, nil
		}
		return editingRepo.RestoreDone, nil
	}
	return parseRestoreHeader(*out.Restore), nil
}

// RestoreWindow is the documented Glacier Flexible Retrieval latency of the
// configured tier
func (s *S3Store) RestoreWindow() (time.Duration, time.Duration) {
	switch s.restoreTier {
	case types.TierExpedited:
		return time.Minute, 5 * time.Minute
	case types.TierBulk:
		return 5 * time.Hour, 12 * time.Hour
	default:
		return 3 * time.Hour, 5 * time.Hour
	}
}

// parseRestoreHeader interprets x-amz-restore, e.g.
// ongoing-request="false", expiry-date="Fri, 21 Dec 2012 00:00:00 GMT"
func parseRestoreHeader(header string) editingRepo.RestoreStatus {
	switch {
	case strings.Contains(header, `ongoing-request="true"`):
		return editingRepo.RestoreOngoing
	case strings.Contains(header, `ongoing-request="false"`):
		return editingRepo.RestoreDone
	default:
		return editingRepo.RestoreNone
	}
}

func isArchiveClass(class types.StorageClass) bool {
	return class == types.StorageClassGlacier || class == types.StorageClassDeepArchive
}

func apiErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}
