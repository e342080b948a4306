package storage

import (
	"context"
	"io"
)

// ObjectStore is a path-addressed binary store. Upload overwrites any object
// already at the key, which makes retried uploads idempotent by path.
type ObjectStore interface {
	Upload(ctx context.Context, key string, contentType string, r io.Reader) (publicURL string, err error)
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
}
