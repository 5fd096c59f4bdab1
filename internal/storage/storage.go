// Package storage defines the Storage interface for tender document blobs.
//
// Backends register themselves with the factory from an init() function in
// their own package:
//
//	func init() {
//	    storage.Register("mybackend", func(cfg *config.Config) (storage.Storage, error) {
//	        return NewMyBackend(cfg)
//	    })
//	}
//
// cmd/server blank-imports each backend package to run its init().
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound is returned when no object exists at a path.
var ErrNotFound = errors.New("object not found")

// ErrNoDirectURL is returned by GetURL on backends that cannot hand out a
// URL clients can fetch directly. Callers stream the object instead.
var ErrNoDirectURL = errors.New("backend does not issue direct download URLs")

// Storage defines the interface for all storage backends
type Storage interface {
	// Upload stores a file and returns the storage result with path and checksum
	Upload(ctx context.Context, path string, reader io.Reader, size int64) (*UploadResult, error)

	// Download retrieves a file and returns a reader
	Download(ctx context.Context, path string) (io.ReadCloser, error)

	// Delete removes a file from storage. Deleting a missing file is not an error.
	Delete(ctx context.Context, path string) error

	// GetURL returns a download URL valid for ttl. Cloud backends presign it.
	GetURL(ctx context.Context, path string, ttl time.Duration) (string, error)

	// Exists checks if a file exists at the specified path
	Exists(ctx context.Context, path string) (bool, error)
}

// UploadResult contains information about an uploaded file
type UploadResult struct {
	Path     string
	Size     int64
	Checksum string
}
