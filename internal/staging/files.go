package staging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FileStore holds staged image binaries until upload. Every saved file must
// be removed again exactly once, on draft removal, successful upload or
// form reset.
type FileStore interface {
	Save(name string, r io.Reader) (path string, err error)
	Remove(path string) error
	Open(path string) (io.ReadCloser, error)
}

type diskStore struct {
	dir string
}

func NewDiskStore(dir string) (FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create staging dir %q: %w", dir, err)
	}
	return &diskStore{dir: dir}, nil
}

func (s *diskStore) Save(name string, r io.Reader) (string, error) {
	f, err := os.CreateTemp(s.dir, "staged-*"+filepath.Ext(name))
	if err != nil {
		return "", fmt.Errorf("failed to create staging file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("failed to write staging file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return f.Name(), nil
}

func (s *diskStore) Remove(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *diskStore) Open(path string) (io.ReadCloser, error) {
	return os.Open(path)
}
