// Package storage defines the object storage interface the snapshot publisher
// writes the public directory export through.
//
// Backends register themselves with the factory from an init() function in
// their own package and are pulled in by blank imports in internal/api/router.go:
//
//	func init() {
//	    storage.Register("mybackend", func(cfg *config.StorageConfig) (storage.Storage, error) {
//	        return New(cfg)
//	    })
//	}
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned by Download when no object exists at the path.
var ErrNotFound = errors.New("object not found")

// Storage is implemented by every object storage backend.
type Storage interface {
	// Upload stores the reader's contents at path, replacing any existing object.
	Upload(ctx context.Context, path string, reader io.Reader, contentType string) (*UploadResult, error)

	// Download returns the object at path. It wraps ErrNotFound when the object is missing.
	Download(ctx context.Context, path string) (io.ReadCloser, error)

	// Exists reports whether an object is stored at path.
	Exists(ctx context.Context, path string) (bool, error)
}

// UploadResult describes a stored object.
type UploadResult struct {
	Path string
	Size int64

	// Checksum is the hex SHA-256 of the uploaded bytes.
	Checksum string
}
