package receipts

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// presignExpiry is how long presigned receipt URLs stay valid when no
// public base URL is configured. SigV4 caps X-Amz-Expires at 7 days;
// anything longer is rejected by S3 and R2 at fetch time. For receipt
// links that must outlive this window, configure PublicBaseURL.
const presignExpiry = 7 * 24 * time.Hour

// Config holds object-store connection settings. Endpoint override and
// path-style addressing support S3-compatible stores (Cloudflare R2,
// MinIO) alongside AWS.
type Config struct {
	Endpoint     string
	Region       string
	Bucket       string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool

	// PublicBaseURL, when set, is prepended to object keys to form the
	// stored receipt URL instead of presigning (e.g. an R2 public bucket
	// domain).
	PublicBaseURL string
}

// Store uploads receipt photos to S3-compatible object storage and hands
// back a retrievable URL.
type Store struct {
	client  *s3.Client
	presign *s3.PresignClient
	cfg     Config
}

// New creates a receipt store.
func New(ctx context.Context, cfg Config) (*Store, error) {
	var awsConfig aws.Config
	var err error

	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		// Static credentials (R2, MinIO, or AWS with explicit keys).
		awsConfig, err = config.LoadDefaultConfig(ctx,
			config.WithRegion(cfg.Region),
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				cfg.AccessKey,
				cfg.SecretKey,
				"",
			)),
		)
	} else {
		// Default credential chain (IAM roles, env vars, etc.).
		awsConfig, err = config.LoadDefaultConfig(ctx,
			config.WithRegion(cfg.Region),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		if cfg.UsePathStyle {
			o.UsePathStyle = true
		}
	})

	return &Store{
		client:  client,
		presign: s3.NewPresignClient(client),
		cfg:     cfg,
	}, nil
}

// Key generates the object key for a tenant's receipt photo.
func Key(tenantID int64, now time.Time) string {
	return fmt.Sprintf("receipts/%d/%s_%s.jpg",
		tenantID, now.Format("20060102_150405"), uuid.NewString()[:8])
}

// Upload stores a receipt image under key and returns the URL to record
// on the reading rows.
func (s *Store) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload receipt: %w", err)
	}

	return s.url(ctx, key)
}

// url builds the retrievable URL for an uploaded object: the public base
// URL when configured, a presigned GET otherwise.
func (s *Store) url(ctx context.Context, key string) (string, error) {
	if s.cfg.PublicBaseURL != "" {
		return strings.TrimSuffix(s.cfg.PublicBaseURL, "/") + "/" + key, nil
	}

	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return "", fmt.Errorf("failed to presign receipt url: %w", err)
	}
	return req.URL, nil
}

// HealthCheck verifies bucket connectivity.
func (s *Store) HealthCheck(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.cfg.Bucket),
	})
	if err != nil {
		return fmt.Errorf("receipt store health check failed: %w", err)
	}
	return nil
}
