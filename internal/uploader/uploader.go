// Package uploader converts raw uploaded file bytes into addressable image
// references. Two adapters exist: a disk adapter that writes files into an
// uploads directory and serves them from the application's own origin, and
// a placeholder adapter that fabricates references to an external
// placeholder-image service when no file storage is wired in.
package uploader

import "context"

// UploadedFile is a single uploaded file descriptor, already detached from
// the transport that delivered it.
type UploadedFile struct {
	Name string
	Data []byte
}

// Uploader turns uploaded files into image references and releases
// references that are no longer needed.
type Uploader interface {
	Store(ctx context.Context, files []UploadedFile) ([]string, error)

	// Remove releases the backing resources of the given references.
	// Removal is best-effort: references without a backing resource are
	// skipped silently.
	Remove(ctx context.Context, refs []string) error
}
