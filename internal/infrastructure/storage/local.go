package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	registrationapp "github.com/maisgenetica/backend/internal/application/registration"
	"go.uber.org/zap"
)

var _ registrationapp.ObjectStorage = (*LocalObjectStorage)(nil)

// LocalObjectStorageConfig contains configuration for disk storage
type LocalObjectStorageConfig struct {
	// BasePath is the root directory. Default: data/storage
	BasePath string
	// BaseURL prefixes download links. Default: /files
	BaseURL string
	Logger  *zap.Logger
}

// LocalObjectStorage keeps objects as files below a base directory, with the
// storage key as the relative path. Meant for development and single-node
// deployments.
type LocalObjectStorage struct {
	basePath string
	baseURL  string
	logger   *zap.Logger
}

// NewLocalObjectStorage creates the base directory and returns the store
func NewLocalObjectStorage(cfg LocalObjectStorageConfig) (*LocalObjectStorage, error) {
	if cfg.BasePath == "" {
		cfg.BasePath = "data/storage"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "/files"
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	absBase, err := filepath.Abs(cfg.BasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage directory: %w", err)
	}
	if err := os.MkdirAll(absBase, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %s: %w", absBase, err)
	}

	return &LocalObjectStorage{
		basePath: absBase,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		logger:   cfg.Logger,
	}, nil
}

// Upload writes data atomically: a temp file in the target directory is
// renamed over the final path.
func (s *LocalObjectStorage) Upload(ctx context.Context, storageKey string, data []byte, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.resolve(storageKey)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write object: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write object: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to store object: %w", err)
	}

	s.logger.Debug("object stored",
		zap.String("key", storageKey),
		zap.String("content_type", contentType),
		zap.Int("size", len(data)))
	return nil
}

// Download reads the object at storageKey
func (s *LocalObjectStorage) Download(ctx context.Context, storageKey string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.resolve(storageKey)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", storageKey, registrationapp.ErrObjectNotFound)
		}
		return nil, fmt.Errorf("failed to read object: %w", err)
	}
	return data, nil
}

// ObjectExists checks if an object exists
func (s *LocalObjectStorage) ObjectExists(ctx context.Context, storageKey string) (bool, error) {
	path, err := s.resolve(storageKey)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check object existence: %w", err)
	}
	return !info.IsDir(), nil
}

// DeleteObject removes an object; deleting a missing object is not an error
func (s *LocalObjectStorage) DeleteObject(ctx context.Context, storageKey string) error {
	path, err := s.resolve(storageKey)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// GenerateDownloadURL returns BaseURL joined with the key. Local links do
// not expire; the returned time is informational.
func (s *LocalObjectStorage) GenerateDownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error) {
	if _, err := s.resolve(storageKey); err != nil {
		return "", time.Time{}, err
	}
	parts := strings.Split(storageKey, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return s.baseURL + "/" + strings.Join(parts, "/"), time.Now().Add(expiresIn), nil
}

// BasePath returns the absolute root directory
func (s *LocalObjectStorage) BasePath() string {
	return s.basePath
}

// resolve maps a key to a path below basePath, rejecting traversal
func (s *LocalObjectStorage) resolve(storageKey string) (string, error) {
	if storageKey == "" {
		return "", errors.New("storage key is required")
	}
	if strings.HasPrefix(storageKey, "/") || containsDotDot(storageKey) {
		s.logger.Warn("blocked storage key", zap.String("key", storageKey))
		return "", fmt.Errorf("invalid storage key %q", storageKey)
	}

	path := filepath.Join(s.basePath, filepath.FromSlash(storageKey))
	if !strings.HasPrefix(path, s.basePath+string(filepath.Separator)) {
		s.logger.Warn("storage key escapes base directory", zap.String("key", storageKey))
		return "", fmt.Errorf("invalid storage key %q", storageKey)
	}
	return path, nil
}

func containsDotDot(key string) bool {
	parts := strings.FieldsFunc(key, func(r rune) bool {
		return r == '/' || r == '\\'
	})
	return slices.Contains(parts, "..")
}
