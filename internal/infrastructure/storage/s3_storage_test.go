package storage

import (
	"context"
	"errors"
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	registrationapp "github.com/maisgenetica/backend/internal/application/registration"
	"github.com/maisgenetica/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func minioConfig(bucket string) *config.StorageConfig {
	return &config.StorageConfig{
		Driver:       "s3",
		Bucket:       bucket,
		AccessKey:    "minioadmin",
		SecretKey:    "minioadmin",
		Endpoint:     "localhost:9000",
		UsePathStyle: true,
	}
}

func TestNewS3ObjectStorage_RequiredSettings(t *testing.T) {
	ctx := context.Background()

	_, err := NewS3ObjectStorage(ctx, nil)
	require.Error(t, err)

	tests := []struct {
		name   string
		mutate func(*config.StorageConfig)
		want   string
	}{
		{"bucket", func(c *config.StorageConfig) { c.Bucket = "" }, "bucket is required"},
		{"access key", func(c *config.StorageConfig) { c.AccessKey = "" }, "access key is required"},
		{"secret key", func(c *config.StorageConfig) { c.SecretKey = "" }, "secret key is required"},
		{"endpoint", func(c *config.StorageConfig) { c.Endpoint = "http://" }, "invalid storage endpoint"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := minioConfig("comprovantes")
			tt.mutate(cfg)
			_, err := NewS3ObjectStorage(ctx, cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestNewS3ObjectStorage_PresignTTL(t *testing.T) {
	ctx := context.Background()

	s, err := NewS3ObjectStorage(ctx, minioConfig("b"))
	require.NoError(t, err)
	assert.Equal(t, defaultPresignTTL, s.presignTTL)
	assert.Equal(t, "b", s.Bucket())

	cfg := minioConfig("b")
	cfg.PresignExpiration = time.Hour
	s, err = NewS3ObjectStorage(ctx, cfg, WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	assert.Equal(t, time.Hour, s.presignTTL)

	s, err = NewS3ObjectStorage(ctx, cfg, WithPresignTTL(5*time.Minute), WithPresignTTL(0))
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, s.presignTTL)
}

func TestResolveEndpoint(t *testing.T) {
	tests := []struct {
		in     string
		useSSL bool
		want   string
	}{
		{"", false, defaultS3Endpoint},
		{"minio:9000", false, "http://minio:9000"},
		{"s3.sa-east-1.amazonaws.com", true, "https://s3.sa-east-1.amazonaws.com"},
		{"https://storage.example.com", false, "https://storage.example.com"},
	}
	for _, tt := range tests {
		got, err := resolveEndpoint(tt.in, tt.useSSL)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestS3ObjectStorage_EmptyKey(t *testing.T) {
	ctx := context.Background()
	s, err := NewS3ObjectStorage(ctx, minioConfig("b"))
	require.NoError(t, err)

	assert.ErrorIs(t, s.Upload(ctx, "", []byte("x"), "image/png"), ErrEmptyKey)
	_, err = s.Download(ctx, "")
	assert.ErrorIs(t, err, ErrEmptyKey)
	_, _, err = s.GenerateDownloadURL(ctx, "", time.Minute)
	assert.ErrorIs(t, err, ErrEmptyKey)
	assert.ErrorIs(t, s.DeleteObject(ctx, ""), ErrEmptyKey)
	_, err = s.ObjectExists(ctx, "")
	assert.ErrorIs(t, err, ErrEmptyKey)
}

func TestS3ObjectStorage_GenerateDownloadURL(t *testing.T) {
	ctx := context.Background()
	s, err := NewS3ObjectStorage(ctx, minioConfig("maisgenetica"))
	require.NoError(t, err)

	raw, expiresAt, err := s.GenerateDownloadURL(ctx, "comprovantes/1700000000000.pdf", 0)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(defaultPresignTTL), expiresAt, 5*time.Second)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "localhost:9000", u.Host)
	assert.Equal(t, "/maisgenetica/comprovantes/1700000000000.pdf", u.Path)
	assert.Equal(t, `attachment; filename="1700000000000.pdf"`, u.Query().Get("response-content-disposition"))
	assert.Equal(t, "900", u.Query().Get("X-Amz-Expires"))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(&types.NoSuchKey{}))
	assert.True(t, isNotFound(&types.NotFound{}))
	assert.True(t, isNotFound(&types.NoSuchBucket{}))
	assert.True(t, isNotFound(errors.New("api error NoSuchKey: The specified key does not exist.")))
	assert.False(t, isNotFound(errors.New("connection refused")))
}

// The MinIO round trip runs only with INTEGRATION_TEST=1 and MinIO on
// localhost:9000.
func TestS3ObjectStorage_MinIO(t *testing.T) {
	if os.Getenv("INTEGRATION_TEST") != "1" {
		t.Skip("set INTEGRATION_TEST=1 with MinIO on localhost:9000")
	}
	ctx := context.Background()
	s, err := NewS3ObjectStorage(ctx, minioConfig("maisgenetica-test"))
	require.NoError(t, err)
	require.NoError(t, s.EnsureBucket(ctx))
	require.NoError(t, s.EnsureBucket(ctx))

	key := "inscricoes/1700000000000-inscricao.pdf"
	body := []byte("%PDF-1.4 receipt")
	require.NoError(t, s.Upload(ctx, key, body, "application/pdf"))

	got, err := s.Download(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, body, got)

	exists, err := s.ObjectExists(ctx, key)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, s.DeleteObject(ctx, key))
	_, err = s.Download(ctx, key)
	assert.ErrorIs(t, err, registrationapp.ErrObjectNotFound)
}
