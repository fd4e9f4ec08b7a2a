// Package blob abstracts the object storage that holds uploaded file bodies.
package blob

import (
	"context"
	"io"
)

// Store is a key-addressed byte store. Keys are opaque, generated by the
// caller, and never reused.
type Store interface {
	// Put writes body under key with the given content type.
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error

	// Get returns the object body and its stored content type. A missing
	// key is reported as common.ErrorNotFound.
	Get(ctx context.Context, key string) (io.ReadCloser, string, error)

	// Delete removes the object. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
