package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalAssetStore keeps uploaded content assets (images, audio, covers)
// on disk under a base directory. Production deployments swap this for an
// object-storage backed implementation of the same interface.
type LocalAssetStore struct {
	baseDir string
}

// NewLocalAssetStore ensures the base directory exists and returns a handle.
func NewLocalAssetStore(baseDir string) (*LocalAssetStore, error) {
	if baseDir == "" {
		baseDir = "./assets"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create assets directory: %w", err)
	}
	return &LocalAssetStore{baseDir: baseDir}, nil
}

// Save writes the given bytes under the provided object key.
func (s *LocalAssetStore) Save(key string, data []byte) (string, error) {
	path := s.resolve(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("prepare asset directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write asset: %w", err)
	}
	return key, nil
}

// SaveStream copies from reader into the object identified by key.
func (s *LocalAssetStore) SaveStream(key string, r io.Reader) (string, error) {
	path := s.resolve(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("prepare asset directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create asset file: %w", err)
	}
	defer file.Close() //nolint:errcheck
	if _, err := io.Copy(file, r); err != nil {
		return "", fmt.Errorf("write asset stream: %w", err)
	}
	return key, nil
}

// Open returns a read-only handle for the stored object.
func (s *LocalAssetStore) Open(key string) (*os.File, error) {
	file, err := os.Open(s.resolve(key))
	if err != nil {
		return nil, fmt.Errorf("open asset: %w", err)
	}
	return file, nil
}

// DeleteObject removes a stored object. A missing object is not an error:
// discard cleanup must be retryable.
func (s *LocalAssetStore) DeleteObject(key string) error {
	if err := os.Remove(s.resolve(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete asset: %w", err)
	}
	return nil
}

// Path exposes the underlying absolute path (useful for debugging).
func (s *LocalAssetStore) Path(key string) string {
	return s.resolve(key)
}

func (s *LocalAssetStore) resolve(key string) string {
	if filepath.IsAbs(key) {
		return key
	}
	return filepath.Join(s.baseDir, key)
}
