package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	aws_config "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	log "github.com/sirupsen/logrus"

	"simplyinvoicing/api/internal/config"
)

// ErrNotConfigured is returned when no archive bucket is configured.
var ErrNotConfigured = errors.New("invoice archive storage is not configured")

// IS3Storage defines the interface for invoice archive operations.
type IS3Storage interface {
	PutInvoiceArchive(ctx context.Context, key string, body []byte, contentType string) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// s3Storage implements IS3Storage.
type s3Storage struct {
	bucket        string
	s3Client      *s3.Client
	presignClient *s3.PresignClient
}

// InvoiceArchiveKey returns the object key of the archived copy of a sent invoice email.
func InvoiceArchiveKey(userID, invoiceID, messageID string) string {
	return fmt.Sprintf("invoices/%s/%s/%s.html", userID, invoiceID, sanitizeKeyPart(messageID))
}

// NewS3Storage creates a new S3 storage service. Without a bucket every
// call returns ErrNotConfigured.
func NewS3Storage(ctx context.Context, cfg *config.Config) (IS3Storage, error) {
	if cfg.AwsS3Bucket == "" {
		log.Warn("AWS_S3_BUCKET not set, invoice archiving disabled")
		return &s3Storage{}, nil
	}

	opts := []func(*aws_config.LoadOptions) error{aws_config.WithRegion(cfg.AwsRegion)}
	if cfg.AwsAccessKeyID != "" {
		opts = append(opts, aws_config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AwsAccessKeyID,
			cfg.AwsSecretAccessKey,
			"", // session token
		)))
	}
	awsCfg, err := aws_config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return newS3Storage(awsCfg, cfg.AwsS3Bucket, cfg.AwsS3Endpoint), nil
}

func newS3Storage(awsCfg aws.Config, bucket, endpoint string) *s3Storage {
	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	return &s3Storage{
		bucket:        bucket,
		s3Client:      s3Client,
		presignClient: s3.NewPresignClient(s3Client),
	}
}

// PutInvoiceArchive uploads an archived invoice email.
func (s *s3Storage) PutInvoiceArchive(ctx context.Context, key string, body []byte, contentType string) error {
	if s.s3Client == nil {
		return ErrNotConfigured
	}
	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload object %s: %w", key, err)
	}
	log.WithFields(log.Fields{"key": key, "bytes": len(body)}).Debug("Archived object uploaded")
	return nil
}

// PresignGet creates a pre-signed URL for downloading an object.
func (s *s3Storage) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if s.presignClient == nil {
		return "", ErrNotConfigured
	}
	req, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned GET URL for key %s: %w", key, err)
	}
	return req.URL, nil
}

func sanitizeKeyPart(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.', r == '_':
			out = append(out, r)
		case r == '@':
			out = append(out, '_')
		}
	}
	return string(out)
}
