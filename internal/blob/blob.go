package blob

import (
	"context"
	"io"
)

// Object describes a stored attachment.
type Object struct {
	// Key is the opaque storage key, unique per object.
	Key string
	// URL is the public URL clients fetch the object from.
	URL string
	// Size is the stored size in bytes.
	Size int64
	// ContentType is the declared MIME type.
	ContentType string
}

// Store persists uploaded attachments and serves them back by key.
type Store interface {
	// Put stores the content of r under a fresh key and returns the object.
	// The original filename is only used to derive the extension.
	Put(ctx context.Context, r io.Reader, filename, contentType string) (*Object, error)

	// Open returns a reader for a stored object along with its content type.
	Open(ctx context.Context, key string) (io.ReadCloser, string, error)

	// Delete removes a stored object. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
