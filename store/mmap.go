package store

import (
	"io"
	"os"

	mmap "github.com/edsrzf/mmap-go"
)

// mmapReader serves ReadAt from a read-only memory mapping of a container
// file. Close unmaps the pages and closes the file.
type mmapReader struct {
	f *os.File
	m mmap.MMap
}

func openMmap(fname string) (ReadAtCloser, int64, error) {
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
	// an empty file cannot be mapped, but an empty reader is fine
	if fi.Size() == 0 {
		return f, 0, nil
	}
	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	return &mmapReader{f: f, m: m}, fi.Size(), nil
}

func (r *mmapReader) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= int64(len(r.m)) {
		return 0, io.EOF
	}
	n := copy(p, r.m[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (r *mmapReader) Close() error {
	err := r.m.Unmap()
	if cerr := r.f.Close(); err == nil {
		err = cerr
	}
	return err
}
