// Package storage holds the physical bytes of uploaded files. The record
// store keeps only the path a Store hands back.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned by Open when nothing is stored at the path.
var ErrNotFound = errors.New("storage: object not found")

// Store is a flat namespace of uploaded objects.
type Store interface {
	// Save writes r under filename and returns the path to record.
	Save(ctx context.Context, filename string, r io.Reader, size int64, contentType string) (string, error)

	// Open returns the object's content; the caller closes it.
	Open(ctx context.Context, path string) (io.ReadCloser, error)

	// Exists reports whether an object is stored at path.
	Exists(ctx context.Context, path string) (bool, error)

	// Remove deletes the object. A missing object is not an error.
	Remove(ctx context.Context, path string) error
}

// Object describes an upload that has been written to a Store but not yet
// recorded.
type Object struct {
	Filename     string
	OriginalName string
	Path         string
	Size         int64
	MimeType     string
}
