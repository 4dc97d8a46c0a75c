package gmh

import (
	"errors"
	"fmt"
)

// Exported errors
var (
	// ErrNotFound indicates there is no container file at the given path.
	ErrNotFound = errors.New("container not found")

	// ErrExists indicates a write would replace an existing file without
	// permission to do so.
	ErrExists = errors.New("path already exists")

	// ErrTruncated indicates a container holds fewer payload bytes than
	// its manifest declares.
	ErrTruncated = errors.New("container truncated")

	// ErrTooLarge indicates a manifest declares a voxel volume bigger than
	// the decoder is willing to allocate.
	ErrTooLarge = errors.New("declared volume exceeds decode limit")

	// ErrBadContainer indicates a byte stream which is not a GMH container
	// at all, or whose framing is internally inconsistent.
	ErrBadContainer = errors.New("malformed container")

	// ErrShapeMismatch indicates an encode where the voxel buffer shape or
	// sample width disagrees with the manifest's image geometry.
	ErrShapeMismatch = errors.New("voxel buffer does not match image geometry")
)

// SchemaError reports the first place a manifest document deviates from the
// manifest schema. Path is a dotted path into the document, e.g.
// "segments[2].color".
type SchemaError struct {
	Path   string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("manifest schema: %s: %s", e.Path, e.Reason)
}
