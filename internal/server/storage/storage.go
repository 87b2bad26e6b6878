// Package storage holds profile picture bytes in an object store.
package storage

import (
	"context"
	"io"
)

// ObjectStore stores and removes blobs addressed by key.
type ObjectStore interface {
	// Put uploads size bytes from body under key and returns the public location.
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}
