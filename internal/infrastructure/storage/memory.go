package storage

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	registrationapp "github.com/maisgenetica/backend/internal/application/registration"
)

var _ registrationapp.ObjectStorage = (*MemoryObjectStorage)(nil)

type memoryObject struct {
	data        []byte
	contentType string
}

// MemoryObjectStorage keeps objects in process memory. Used in tests and
// when storage.driver is "memory".
type MemoryObjectStorage struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
	// BaseURL prefixes generated download links
	BaseURL string
}

// NewMemoryObjectStorage creates an empty store
func NewMemoryObjectStorage() *MemoryObjectStorage {
	return &MemoryObjectStorage{
		objects: make(map[string]memoryObject),
		BaseURL: "memory://objects",
	}
}

// Upload stores a copy of data
func (s *MemoryObjectStorage) Upload(ctx context.Context, storageKey string, data []byte, contentType string) error {
	if storageKey == "" {
		return errors.New("storage key is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[storageKey] = memoryObject{data: slices.Clone(data), contentType: contentType}
	return nil
}

// Download returns a copy of the stored object
func (s *MemoryObjectStorage) Download(ctx context.Context, storageKey string) ([]byte, error) {
	if storageKey == "" {
		return nil, errors.New("storage key is required")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[storageKey]
	if !ok {
		return nil, fmt.Errorf("%s: %w", storageKey, registrationapp.ErrObjectNotFound)
	}
	return slices.Clone(obj.data), nil
}

// GenerateDownloadURL returns a placeholder URL for the key
func (s *MemoryObjectStorage) GenerateDownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error) {
	if storageKey == "" {
		return "", time.Time{}, errors.New("storage key is required")
	}
	expiresAt := time.Now().Add(expiresIn)
	return s.BaseURL + "/" + storageKey + "?expires=" + expiresAt.Format(time.RFC3339), expiresAt, nil
}

// DeleteObject removes the key
func (s *MemoryObjectStorage) DeleteObject(ctx context.Context, storageKey string) error {
	if storageKey == "" {
		return errors.New("storage key is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, storageKey)
	return nil
}

// ObjectExists checks if the key is stored
func (s *MemoryObjectStorage) ObjectExists(ctx context.Context, storageKey string) (bool, error) {
	if storageKey == "" {
		return false, errors.New("storage key is required")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[storageKey]
	return ok, nil
}

// ContentType returns the content type recorded for a key
func (s *MemoryObjectStorage) ContentType(storageKey string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.objects[storageKey].contentType
}

// Len returns the number of stored objects
func (s *MemoryObjectStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
