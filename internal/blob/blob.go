// Package blob defines the content-addressed store for uploaded document bytes.
package blob

import (
	"context"
	"io"
)

// Extension appended to every stored object; the store holds PDF bytes only.
const Extension = ".pdf"

// Location returns the store-relative location for a content digest.
// The mapping is deterministic and requires no I/O: identical bytes always
// land at the identical location, which is the basis of upload deduplication.
func Location(digest string) string {
	return digest + Extension
}

// Provider is the interface for blob operations. Objects are keyed by the
// SHA-256 digest of their content.
type Provider interface {
	// Put stores data under its content digest and returns the digest.
	// Storing bytes that are already present is a no-op.
	Put(ctx context.Context, data []byte) (string, error)
	// Open returns a reader for the object at location.
	// A missing object is reported as an error wrapping fs.ErrNotExist.
	Open(ctx context.Context, location string) (io.ReadCloser, error)
	// Remove deletes the object at location. Removing an object that is
	// already absent is not an error.
	Remove(ctx context.Context, location string) error
}
