package storage

import (
	"context"
	"fmt"

	registrationapp "github.com/maisgenetica/backend/internal/application/registration"
	infraconfig "github.com/maisgenetica/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// New builds the object store selected by cfg.Driver. For "s3" the bucket
// is created when missing.
func New(ctx context.Context, cfg *infraconfig.StorageConfig, logger *zap.Logger) (registrationapp.ObjectStorage, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Driver {
	case "s3":
		s3Storage, err := NewS3ObjectStorage(ctx, cfg, WithLogger(logger))
		if err != nil {
			return nil, err
		}
		if err := s3Storage.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		logger.Info("using S3 object storage", zap.String("bucket", s3Storage.Bucket()))
		return s3Storage, nil
	case "local", "":
		local, err := NewLocalObjectStorage(LocalObjectStorageConfig{
			BasePath: cfg.LocalPath,
			BaseURL:  cfg.LocalBaseURL,
			Logger:   logger,
		})
		if err != nil {
			return nil, err
		}
		logger.Info("using local object storage", zap.String("path", local.BasePath()))
		return local, nil
	case "memory":
		logger.Warn("using in-memory object storage; uploads are lost on restart")
		return NewMemoryObjectStorage(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
