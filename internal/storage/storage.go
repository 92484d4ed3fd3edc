// package storage defines durable blob storage for playlist cover images.
package storage

import "context"

// BlobStore is the durable object store behind cover persistence.
//
// Implementations must support name-addressed overwrite: uploading the same
// name twice replaces the object.
type BlobStore interface {
	// Upload writes data under name and returns its public URL.
	Upload(ctx context.Context, name string, data []byte, contentType string) (string, error)

	// Fetch reads the full object back, used for post-write verification.
	Fetch(ctx context.Context, name string) ([]byte, error)

	// Remove deletes an object; used to clean up partial writes between
	// upload attempts.
	Remove(ctx context.Context, name string) error

	// PublicURL returns the URL an object would be served from.
	PublicURL(name string) string

	// Owns reports whether url already points into this store.
	Owns(url string) bool
}
