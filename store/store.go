// Package store provides a simple key-value interface for persisted
// container files. Values are streams rather than opaque byte arrays, so
// large voxel volumes can be moved without being held in memory twice.
//
// The FileSystem implementation is the one used in production. Memory is
// useful for testing.
package store

import (
	"errors"
	"io"
)

// ReadAtCloser combines the io.ReaderAt and io.Closer interfaces.
type ReadAtCloser interface {
	io.ReaderAt
	io.Closer
}

// Store is a stream based key-value store. Keys name whole container
// files, so they must not contain path separators; include any desired
// file extension in the key itself.
//
// Open returns a ReadAtCloser instead of an io.Reader because the zip
// framing of a container needs random access.
type Store interface {
	// List returns a channel giving every key in the store.
	List() <-chan string

	// Open returns a reader for the value of the given key, along with
	// its size. Returns ErrNotFound if the key is absent.
	Open(key string) (ReadAtCloser, int64, error)

	// Create makes a new value under the given key and returns a writer
	// for it. The value becomes visible only when the writer is closed.
	// Returns ErrKeyExists if the key is already present.
	Create(key string) (io.WriteCloser, error)

	// Replace is Create without the exclusivity: any existing value is
	// atomically replaced when the writer is closed.
	Replace(key string) (io.WriteCloser, error)

	// Delete removes the given key. Deleting an absent key is not an
	// error.
	Delete(key string) error
}

// Canceler is implemented by the writers returned from Create and Replace.
// Cancel abandons the pending value: nothing becomes visible under the key
// and any staged data is removed. Use it instead of Close when writing
// failed partway.
type Canceler interface {
	Cancel() error
}

var (
	// ErrKeyExists indicates an attempt to create a key which already exists
	ErrKeyExists = errors.New("key already exists")

	// ErrNotFound indicates the given key is not in the store
	ErrNotFound = errors.New("key not found")

	// ErrKeyContainsSlash means the key provided contains a path separator
	ErrKeyContainsSlash = errors.New("key contains forward slash")
)

// NewReader converts a ReaderAt into an io.Reader reading from offset 0.
// It is here as a utility to help work with the ReadAtCloser returned by
// Open.
func NewReader(r io.ReaderAt) io.Reader {
	return &reader{r: r}
}

type reader struct {
	r   io.ReaderAt
	off int64
}

func (r *reader) Read(p []byte) (n int, err error) {
	n, err = r.r.ReadAt(p, r.off)
	r.off += int64(n)
	if err == io.EOF && n > 0 {
		// reading less than a full buffer is not an error for
		// an io.Reader
		err = nil
	}
	return
}
