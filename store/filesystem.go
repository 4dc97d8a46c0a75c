package store

import (
	"io"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"strings"

	raven "github.com/getsentry/raven-go"
)

// FileSystem implements a Store over a single directory. Keys are used as
// file names directly, so keys must not contain a forward slash '/'.
//
// New values are staged in a scratch subdirectory and renamed into place on
// Close, so a reader never observes a partially written container file.
type FileSystem struct {
	root string

	// Mmap selects the memory-mapped read path in Open. The returned
	// ReadAtCloser then reads from mapped pages instead of file syscalls,
	// which makes repeated decodes of the same file considerably cheaper.
	Mmap bool
}

const (
	// the subdir files are staged in while they are being written
	scratchdir = "scratch"
)

var (
	// make sure it implements the Store interface
	_ Store = &FileSystem{}
)

// NewFileSystem creates a new FileSystem store based at the given root
// directory.
func NewFileSystem(root string) *FileSystem {
	return &FileSystem{root: root}
}

// List returns a channel listing all the keys in this store. Scratch files
// are not listed.
func (s *FileSystem) List() <-chan string {
	c := make(chan string)
	go func() {
		defer close(c)
		entries, err := ioutil.ReadDir(s.root)
		if err != nil {
			// we have no other way of passing this error back
			log.Println(err)
			raven.CaptureError(err, nil)
			return
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			c <- e.Name()
		}
	}()
	return c
}

// Open returns a reader for the given key along with its size.
func (s *FileSystem) Open(key string) (ReadAtCloser, int64, error) {
	if strings.Contains(key, "/") {
		return nil, 0, ErrKeyContainsSlash
	}
	fname := filepath.Join(s.root, key)
	if s.Mmap {
		return openMmap(fname)
	}
	f, err := os.Open(fname)
	if err != nil {
		if os.IsNotExist(err) {
			err = ErrNotFound
		}
		return nil, 0, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	return f, fi.Size(), nil
}

// Create makes a new value with the given key and returns a writer for
// saving data into it. The key must not already exist.
func (s *FileSystem) Create(key string) (io.WriteCloser, error) {
	return s.create(key, true)
}

// Replace is like Create, but an existing value under the key is replaced
// when the returned writer is closed.
func (s *FileSystem) Replace(key string) (io.WriteCloser, error) {
	return s.create(key, false)
}

func (s *FileSystem) create(key string, exclusive bool) (io.WriteCloser, error) {
	if strings.Contains(key, "/") {
		return nil, ErrKeyContainsSlash
	}
	target := filepath.Join(s.root, key)
	if exclusive {
		_, err := os.Stat(target)
		if !os.IsNotExist(err) {
			return nil, ErrKeyExists
		}
	}
	// now set up the scratch location we will temporarily save the file to
	dir := filepath.Join(s.root, scratchdir)
	err := os.MkdirAll(dir, 0775)
	if err != nil {
		return nil, err
	}
	// pass the O_EXCL flag explicitly to prevent two writers from sharing
	// one scratch file
	temp := filepath.Join(dir, key)
	w, err := os.OpenFile(temp, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0666)
	if err != nil {
		return nil, err
	}
	return &moveCloser{
		WriteCloser: w,
		source:      temp,
		target:      target,
		exclusive:   exclusive,
	}, nil
}

// track the file so when it is closed, we can move it into the correct place
type moveCloser struct {
	io.WriteCloser
	source    string
	target    string
	exclusive bool
}

func (w *moveCloser) Close() error {
	err := w.WriteCloser.Close()
	if err != nil {
		return err
	}
	if w.exclusive {
		_, err = os.Stat(w.target)
		if !os.IsNotExist(err) {
			os.Remove(w.source)
			return ErrKeyExists
		}
	}
	return os.Rename(w.source, w.target)
}

// Cancel abandons the staged file without touching the target.
func (w *moveCloser) Cancel() error {
	w.WriteCloser.Close()
	return os.Remove(w.source)
}

// Delete the given key from the store. It is not an error if the key
// doesn't exist.
func (s *FileSystem) Delete(key string) error {
	if strings.Contains(key, "/") {
		return ErrKeyContainsSlash
	}
	err := os.Remove(filepath.Join(s.root, key))
	// don't report a missing file as an error
	if err != nil && os.IsNotExist(err) {
		err = nil
	}
	return err
}
