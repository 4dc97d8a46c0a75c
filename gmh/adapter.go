package gmh

import (
	"log"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/gmh-format/gmh/model"
	"github.com/gmh-format/gmh/store"
)

// Adapter is the filesystem read/write surface for container files. It is
// the only part of the package aware of paths; everything else works on
// in-memory values or byte streams.
//
// Writes go through a scratch file in the target directory which is renamed
// over the destination, so a crash mid-write never leaves a half-written
// container visible, and concurrent readers of an existing file keep seeing
// the old content until the rename. Concurrent writers to the same path are
// not coordinated beyond last-writer-wins.
type Adapter struct {
	// Codec performs the actual encoding and decoding.
	Codec Codec

	// Mmap selects the memory-mapped read path. Useful when the same file
	// is decoded repeatedly.
	Mmap bool

	// Verbose enables logging of each read and write.
	Verbose bool
}

// Read loads the container file at path. The container's identifier is
// deduced from the file base name. Returns ErrNotFound if there is no file
// at path, and passes schema and truncation errors from the codec through
// unchanged.
func (a *Adapter) Read(path string) (*model.Container, error) {
	if a.Verbose {
		log.Println("reading gmh file from", path)
	}
	fs := a.fileStore(filepath.Dir(path))
	rac, size, err := fs.Open(filepath.Base(path))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errors.Wrap(ErrNotFound, path)
		}
		return nil, err
	}
	defer rac.Close()
	m, v, err := a.Codec.Decode(rac, size)
	if err != nil {
		return nil, err
	}
	return &model.Container{
		Identifier: DeduceIdentifier(path),
		Manifest:   m,
		Voxels:     v,
	}, nil
}

// Write persists the container to path. If the path exists and
// overwriteIfExisting is false, Write fails with ErrExists and the existing
// file is left untouched. Otherwise the file is created or atomically
// replaced.
func (a *Adapter) Write(ctr *model.Container, path string, overwriteIfExisting bool) error {
	if a.Verbose {
		log.Println("writing gmh file to", path)
	}
	fs := a.fileStore(filepath.Dir(path))
	key := filepath.Base(path)
	var w = fs.Create
	if overwriteIfExisting {
		w = fs.Replace
	}
	out, err := w(key)
	if err != nil {
		if errors.Is(err, store.ErrKeyExists) {
			return errors.Wrap(ErrExists, path)
		}
		return err
	}
	err = a.Codec.Encode(out, ctr.Manifest, ctr.Voxels)
	if err != nil {
		// discard the scratch file; the target is untouched
		if c, ok := out.(store.Canceler); ok {
			c.Cancel()
		}
		return err
	}
	err = out.Close()
	if errors.Is(err, store.ErrKeyExists) {
		return errors.Wrap(ErrExists, path)
	}
	return err
}

func (a *Adapter) fileStore(dir string) *store.FileSystem {
	fs := store.NewFileSystem(dir)
	fs.Mmap = a.Mmap
	return fs
}

// DeduceIdentifier maps a container file path to the container identifier:
// the file base name without extension, sanitized to the identifier
// character set.
func DeduceIdentifier(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return model.SanitizeIdentifier(base)
}
