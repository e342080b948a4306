package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"submission-app/internal/logger"
)

type gcsStore struct {
	log        *logger.Logger
	client     *storage.Client
	bucketName string
	cdnDomain  string
}

// NewGCSStore builds the production object store on a GCS bucket. Credentials
// come from GOOGLE_APPLICATION_CREDENTIALS_JSON or ambient ADC.
func NewGCSStore(ctx context.Context, bucketName, cdnDomain string, log *logger.Logger) (ObjectStore, error) {
	storeLog := log.With("service", "GCSStore")

	var client *storage.Client
	var err error
	if saPath := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON"); saPath != "" {
		client, err = storage.NewClient(ctx, option.WithCredentialsFile(saPath), option.WithScopes(storage.ScopeReadWrite))
	} else {
		storeLog.Warn("GOOGLE_APPLICATION_CREDENTIALS_JSON not set, relying on ambient ADC")
		client, err = storage.NewClient(ctx, option.WithScopes(storage.ScopeReadWrite))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	return &gcsStore{
		log:        storeLog,
		client:     client,
		bucketName: bucketName,
		cdnDomain:  cdnDomain,
	}, nil
}

func (s *gcsStore) Upload(ctx context.Context, key string, contentType string, r io.Reader) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := s.client.Bucket(s.bucketName).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to write data to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to close GCS writer: %w", err)
	}
	return s.PublicURL(key), nil
}

func (s *gcsStore) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := s.client.Bucket(s.bucketName).Object(key).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete GCS object %q: %w", key, err)
	}
	return nil
}

func (s *gcsStore) PublicURL(key string) string {
	if s.cdnDomain != "" {
		return fmt.Sprintf("https://%s/%s", s.cdnDomain, key)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucketName, key)
}
