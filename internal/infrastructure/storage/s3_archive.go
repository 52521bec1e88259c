// Package storage archives rendered receipt documents in S3-compatible
// object storage.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/fiscaldesk/backend/internal/application/receipt"
	infraconfig "github.com/fiscaldesk/backend/internal/infrastructure/config"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Ensure S3ArchiveStore implements the application port
var _ receipt.ArtifactStore = (*S3ArchiveStore)(nil)

// S3ArchiveStore stores receipt PDFs in an S3-compatible bucket. Archived
// documents are immutable; they are written once when a receipt is sent and
// never overwritten or deleted.
type S3ArchiveStore struct {
	client        *s3.Client
	bucket        string
	endpoint      string
	publicBaseURL string
	usePathStyle  bool
	logger        *zap.Logger
}

// NewS3ArchiveStore creates an archive store from the storage configuration.
// It works against AWS S3 and S3-compatible backends (MinIO, RustFS).
func NewS3ArchiveStore(cfg infraconfig.StorageConfig, logger *zap.Logger) (*S3ArchiveStore, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	if cfg.AccessKeyID == "" {
		return nil, errors.New("storage access key is required")
	}
	if cfg.SecretAccessKey == "" {
		return nil, errors.New("storage secret key is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	endpoint := cfg.Endpoint
	if endpoint != "" && !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}

	region := cfg.Region
	if region == "" {
		region = "eu-west-1"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	return &S3ArchiveStore{
		client:        client,
		bucket:        cfg.Bucket,
		endpoint:      endpoint,
		publicBaseURL: strings.TrimSuffix(cfg.PublicBaseURL, "/"),
		usePathStyle:  cfg.UsePathStyle,
		logger:        logger,
	}, nil
}

// EnsureBucket creates the archive bucket if it doesn't exist. Call during
// application startup.
func (s *S3ArchiveStore) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err == nil {
		return nil
	}

	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	s.logger.Info("Creating archive bucket", zap.String("bucket", s.bucket))
	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		var alreadyOwned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &alreadyOwned) {
			return nil
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}

	return nil
}

// Archive uploads the PDF and returns its durable retrieval URL
func (s *S3ArchiveStore) Archive(ctx context.Context, receiptID uuid.UUID, receiptNumber int, pdf []byte) (string, error) {
	if len(pdf) == 0 {
		return "", errors.New("pdf content is empty")
	}

	key := archiveKey(receiptID, receiptNumber)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(pdf),
		ContentType: aws.String("application/pdf"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload receipt document: %w", err)
	}

	url := s.objectURL(key)
	s.logger.Info("Receipt document archived",
		zap.String("receipt_id", receiptID.String()),
		zap.Int("receipt_number", receiptNumber),
		zap.String("url", url))

	return url, nil
}

// archiveKey derives the storage key for a receipt document
func archiveKey(receiptID uuid.UUID, receiptNumber int) string {
	return fmt.Sprintf("receipts/%s/recibo-%d.pdf", receiptID, receiptNumber)
}

// objectURL builds the durable URL recorded on the receipt. A configured
// public base URL (CDN or reverse proxy) wins; otherwise the URL is derived
// from the endpoint and bucket.
func (s *S3ArchiveStore) objectURL(key string) string {
	if s.publicBaseURL != "" {
		return s.publicBaseURL + "/" + key
	}
	if s.endpoint != "" {
		if s.usePathStyle {
			return fmt.Sprintf("%s/%s/%s", s.endpoint, s.bucket, key)
		}
		return fmt.Sprintf("%s/%s", strings.Replace(s.endpoint, "://", "://"+s.bucket+".", 1), key)
	}
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.bucket, key)
}
