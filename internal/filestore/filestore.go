package filestore

import (
	"io"
)

// ImageStore is an interface for storing and retrieving images by generated name.
type ImageStore interface {
	// Save writes the stream under a freshly generated name and returns that name.
	// The name is only returned once the whole stream has been written.
	Save(r io.Reader, contentType string) (string, error)

	// Open returns the image content and its size in bytes.
	// Names that were not produced by Save yield models.ErrNotFound.
	Open(name string) (io.ReadCloser, int64, error)
}
