package store

import (
	"io"
	"sync"
)

// Memory implements a simple in-memory version of a store. It is intended
// mainly for testing.
type Memory struct {
	m     sync.RWMutex
	store map[string]*buf
}

var (
	// ensure Memory satisfies the Store interface
	_ Store = &Memory{}
)

// NewMemory returns a new, empty memory store.
func NewMemory() *Memory {
	return &Memory{store: make(map[string]*buf)}
}

// List returns a channel giving every key in the store.
func (ms *Memory) List() <-chan string {
	c := make(chan string)
	go func() {
		ms.m.RLock()
		var keys []string
		for k := range ms.store {
			keys = append(keys, k)
		}
		ms.m.RUnlock()
		for _, k := range keys {
			c <- k
		}
		close(c)
	}()
	return c
}

// Open returns a ReadAtCloser and the size of the given value.
func (ms *Memory) Open(key string) (ReadAtCloser, int64, error) {
	ms.m.RLock()
	v, ok := ms.store[key]
	ms.m.RUnlock()
	if !ok {
		return nil, 0, ErrNotFound
	}
	return v, int64(len(v.b)), nil
}

type buf struct {
	b []byte
}

func (r *buf) Close() error { return nil }

func (r *buf) ReadAt(p []byte, off int64) (int, error) {
	if int(off) >= len(r.b) {
		return 0, io.EOF
	}
	n := copy(p, r.b[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// pending accumulates writes and installs the finished value into the
// store map on Close, mirroring the visibility rules of FileSystem.
type pending struct {
	ms        *Memory
	key       string
	exclusive bool
	b         []byte
}

func (w *pending) Write(p []byte) (int, error) {
	w.b = append(w.b, p...)
	return len(p), nil
}

func (w *pending) Close() error {
	w.ms.m.Lock()
	defer w.ms.m.Unlock()
	if w.exclusive {
		if _, ok := w.ms.store[w.key]; ok {
			return ErrKeyExists
		}
	}
	w.ms.store[w.key] = &buf{b: w.b}
	return nil
}

// Cancel abandons the pending value.
func (w *pending) Cancel() error {
	w.b = nil
	return nil
}

// Create makes a new entry in the store, and returns a writer to save data
// into it. The entry is not visible until the writer is closed.
func (ms *Memory) Create(key string) (io.WriteCloser, error) {
	ms.m.RLock()
	_, ok := ms.store[key]
	ms.m.RUnlock()
	if ok {
		return nil, ErrKeyExists
	}
	return &pending{ms: ms, key: key, exclusive: true}, nil
}

// Replace is like Create, except an existing entry under the key is
// replaced when the writer is closed.
func (ms *Memory) Replace(key string) (io.WriteCloser, error) {
	return &pending{ms: ms, key: key}, nil
}

// Delete the given key from the store. It is not an error if the key does
// not exist in the store.
func (ms *Memory) Delete(key string) error {
	ms.m.Lock()
	delete(ms.store, key)
	ms.m.Unlock()
	return nil
}
