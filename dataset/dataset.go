// Package dataset groups loaded containers into sets keyed by their
// identifier, for tooling that works across a directory of related scans.
package dataset

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/gmh-format/gmh/gmh"
	"github.com/gmh-format/gmh/model"
	"github.com/gmh-format/gmh/store"
)

// FileExtension is the conventional extension of container files.
const FileExtension = ".gmh"

// Set is a collection of containers with unique identifiers. The zero
// value is not usable; call NewSet.
type Set struct {
	byID map[string]*model.Container
}

// NewSet returns an empty set.
func NewSet() *Set {
	return &Set{byID: make(map[string]*model.Container)}
}

// Add puts a container into the set. The container must carry a valid
// identifier not already present in the set.
func (s *Set) Add(c *model.Container) error {
	if !model.ValidIdentifier(c.Identifier) {
		return errors.Wrapf(model.ErrBadIdentifier, "container %q", c.Identifier)
	}
	if _, ok := s.byID[c.Identifier]; ok {
		return errors.Wrapf(model.ErrDuplicateKey, "container %q", c.Identifier)
	}
	s.byID[c.Identifier] = c
	return nil
}

// Remove takes the container with the given identifier out of the set.
func (s *Set) Remove(identifier string) error {
	if _, ok := s.byID[identifier]; !ok {
		return errors.Wrapf(model.ErrUnknownKey, "container %q", identifier)
	}
	delete(s.byID, identifier)
	return nil
}

// Get returns the container with the given identifier, or nil.
func (s *Set) Get(identifier string) *model.Container {
	return s.byID[identifier]
}

// Has reports whether a container with the given identifier is present.
func (s *Set) Has(identifier string) bool {
	_, ok := s.byID[identifier]
	return ok
}

// Len returns the number of containers in the set.
func (s *Set) Len() int {
	return len(s.byID)
}

// Identifiers returns the sorted identifiers of the set.
func (s *Set) Identifiers() []string {
	ids := make([]string, 0, len(s.byID))
	for id := range s.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// HavingSegment returns the subset of containers whose manifest has a
// segment with the given identifier.
func (s *Set) HavingSegment(identifier string) *Set {
	return s.filter(func(c *model.Container) bool {
		return c.Manifest.HasSegment(identifier)
	})
}

// NotHavingSegment returns the subset of containers whose manifest lacks a
// segment with the given identifier.
func (s *Set) NotHavingSegment(identifier string) *Set {
	return s.filter(func(c *model.Container) bool {
		return !c.Manifest.HasSegment(identifier)
	})
}

func (s *Set) filter(keep func(*model.Container) bool) *Set {
	result := NewSet()
	for id, c := range s.byID {
		if keep(c) {
			result.byID[id] = c
		}
	}
	return result
}

// LoadDirectory reads every container file in dir into a new set. Files
// without the container extension are skipped. A nil adapter uses the
// default one.
func LoadDirectory(dir string, a *gmh.Adapter) (*Set, error) {
	if a == nil {
		a = &gmh.Adapter{}
	}
	s := NewSet()
	fs := store.NewFileSystem(dir)
	for key := range fs.List() {
		if !strings.HasSuffix(key, FileExtension) {
			continue
		}
		c, err := a.Read(filepath.Join(dir, key))
		if err != nil {
			return nil, errors.Wrapf(err, "loading %s", key)
		}
		if err := s.Add(c); err != nil {
			return nil, err
		}
	}
	return s, nil
}
