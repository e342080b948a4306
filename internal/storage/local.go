package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"submission-app/internal/logger"
)

// localStore writes objects under a base directory. Development and test
// stand-in for the GCS store.
type localStore struct {
	log     *logger.Logger
	baseDir string
	baseURL string
}

func NewLocalStore(baseDir, baseURL string, log *logger.Logger) (ObjectStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage dir %q: %w", baseDir, err)
	}
	return &localStore{
		log:     log.With("service", "LocalStore"),
		baseDir: baseDir,
		baseURL: baseURL,
	}, nil
}

func (s *localStore) Upload(ctx context.Context, key string, contentType string, r io.Reader) (string, error) {
	dst := filepath.Join(s.baseDir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("failed to create object dir: %w", err)
	}

	f, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("failed to create object file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("failed to write object file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return s.PublicURL(key), nil
}

func (s *localStore) Delete(ctx context.Context, key string) error {
	dst := filepath.Join(s.baseDir, filepath.FromSlash(key))
	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete object %q: %w", key, err)
	}
	return nil
}

func (s *localStore) PublicURL(key string) string {
	return s.baseURL + "/" + key
}
