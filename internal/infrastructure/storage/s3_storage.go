// Package storage provides the object stores holding uploaded proof
// documents and generated receipts.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	registrationapp "github.com/maisgenetica/backend/internal/application/registration"
	infraconfig "github.com/maisgenetica/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

var _ registrationapp.ObjectStorage = (*S3ObjectStorage)(nil)

const (
	defaultS3Endpoint = "http://localhost:9000"
	defaultS3Region   = "us-east-1"
	defaultPresignTTL = 15 * time.Minute
	// proof documents and receipts never change once written
	immutableCacheControl = "private, max-age=31536000, immutable"
)

// ErrEmptyKey is returned for operations without a storage key
var ErrEmptyKey = errors.New("storage key is required")

// S3ObjectStorage keeps proof documents and receipts in an S3-compatible
// bucket (AWS S3 or MinIO).
type S3ObjectStorage struct {
	client     *s3.Client
	presigner  *s3.PresignClient
	bucket     string
	presignTTL time.Duration
	logger     *zap.Logger
}

// S3Option configures S3ObjectStorage
type S3Option func(*S3ObjectStorage)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) S3Option {
	return func(s *S3ObjectStorage) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithPresignTTL overrides the lifetime of download links
func WithPresignTTL(d time.Duration) S3Option {
	return func(s *S3ObjectStorage) {
		if d > 0 {
			s.presignTTL = d
		}
	}
}

// NewS3ObjectStorage builds the client from cfg. No request is made.
func NewS3ObjectStorage(ctx context.Context, cfg *infraconfig.StorageConfig, opts ...S3Option) (*S3ObjectStorage, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}
	switch {
	case cfg.Bucket == "":
		return nil, errors.New("storage bucket is required")
	case cfg.AccessKey == "":
		return nil, errors.New("storage access key is required")
	case cfg.SecretKey == "":
		return nil, errors.New("storage secret key is required")
	}

	endpoint, err := resolveEndpoint(cfg.Endpoint, cfg.UseSSL)
	if err != nil {
		return nil, err
	}
	region := cfg.Region
	if region == "" {
		region = defaultS3Region
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		o.BaseEndpoint = aws.String(endpoint)
	})

	s := &S3ObjectStorage{
		client:     client,
		presigner:  s3.NewPresignClient(client),
		bucket:     cfg.Bucket,
		presignTTL: defaultPresignTTL,
		logger:     zap.NewNop(),
	}
	if cfg.PresignExpiration > 0 {
		s.presignTTL = cfg.PresignExpiration
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// resolveEndpoint adds a scheme to bare host:port endpoints
func resolveEndpoint(endpoint string, useSSL bool) (string, error) {
	if endpoint == "" {
		return defaultS3Endpoint, nil
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		scheme := "http://"
		if useSSL {
			scheme = "https://"
		}
		endpoint = scheme + endpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("invalid storage endpoint %q", endpoint)
	}
	return endpoint, nil
}

// Bucket returns the bucket name
func (s *S3ObjectStorage) Bucket() string {
	return s.bucket
}

// EnsureBucket creates the bucket when it is missing. Losing a creation race
// to another replica is not an error.
func (s *S3ObjectStorage) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err == nil {
		return nil
	}
	if !isNotFound(err) {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}

	s.logger.Info("creating storage bucket", zap.String("bucket", s.bucket))
	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.bucket)})
	var owned *types.BucketAlreadyOwnedByYou
	if err != nil && !errors.As(err, &owned) {
		return fmt.Errorf("create bucket %s: %w", s.bucket, err)
	}
	return nil
}

// Upload writes data under storageKey
func (s *S3ObjectStorage) Upload(ctx context.Context, storageKey string, data []byte, contentType string) error {
	if storageKey == "" {
		return ErrEmptyKey
	}
	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(storageKey),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		CacheControl:  aws.String(immutableCacheControl),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("upload %s: %w", storageKey, err)
	}
	s.logger.Debug("object stored", zap.String("key", storageKey), zap.Int("bytes", len(data)))
	return nil
}

// Download reads a whole object. A missing key wraps
// registrationapp.ErrObjectNotFound.
func (s *S3ObjectStorage) Download(ctx context.Context, storageKey string) ([]byte, error) {
	if storageKey == "" {
		return nil, ErrEmptyKey
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(storageKey),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%s: %w", storageKey, registrationapp.ErrObjectNotFound)
		}
		return nil, fmt.Errorf("download %s: %w", storageKey, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", storageKey, err)
	}
	return data, nil
}

// GenerateDownloadURL presigns a GET that the browser saves as a file.
// A non-positive expiresIn uses the configured lifetime.
func (s *S3ObjectStorage) GenerateDownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error) {
	if storageKey == "" {
		return "", time.Time{}, ErrEmptyKey
	}
	if expiresIn <= 0 {
		expiresIn = s.presignTTL
	}
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket:                     aws.String(s.bucket),
		Key:                        aws.String(storageKey),
		ResponseContentDisposition: aws.String(attachmentDisposition(storageKey)),
	}, s3.WithPresignExpires(expiresIn))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("presign %s: %w", storageKey, err)
	}
	return req.URL, time.Now().Add(expiresIn), nil
}

// DeleteObject removes an object; S3 treats missing keys as deleted
func (s *S3ObjectStorage) DeleteObject(ctx context.Context, storageKey string) error {
	if storageKey == "" {
		return ErrEmptyKey
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(storageKey),
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", storageKey, err)
	}
	return nil
}

// ObjectExists reports whether storageKey is stored
func (s *S3ObjectStorage) ObjectExists(ctx context.Context, storageKey string) (bool, error) {
	if storageKey == "" {
		return false, ErrEmptyKey
	}
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(storageKey),
	})
	switch {
	case err == nil:
		return true, nil
	case isNotFound(err):
		return false, nil
	default:
		return false, fmt.Errorf("head %s: %w", storageKey, err)
	}
}

// attachmentDisposition names the download after the last key segment
func attachmentDisposition(storageKey string) string {
	name := storageKey[strings.LastIndex(storageKey, "/")+1:]
	return fmt.Sprintf("attachment; filename=%q", name)
}

// isNotFound matches the typed SDK errors and the bare codes some
// S3-compatible servers send instead.
func isNotFound(err error) bool {
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	var noSuchBucket *types.NoSuchBucket
	if errors.As(err, &notFound) || errors.As(err, &noSuchKey) || errors.As(err, &noSuchBucket) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "NotFound") || strings.Contains(msg, "NoSuchKey")
}
