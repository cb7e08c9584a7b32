package storage

import (
	"context"
	"io"
)

// Adapter defines the interface for storage backends. The renderer
// writes audio tracks, playlists and bundles through it, so a book can
// land on the local filesystem or in an S3 bucket without the caller
// knowing. Paths are relative and forward-slash separated on every
// backend.
type Adapter interface {
	// Put stores data at the given path
	Put(ctx context.Context, path string, data io.Reader) error

	// Get retrieves data from the given path
	Get(ctx context.Context, path string) (io.ReadCloser, error)

	// Delete removes data at the given path
	Delete(ctx context.Context, path string) error

	// Exists checks if data exists at the given path
	Exists(ctx context.Context, path string) (bool, error)

	// List returns paths matching the given prefix, sorted
	List(ctx context.Context, prefix string) ([]string, error)

	// Close cleans up any resources
	Close() error
}
