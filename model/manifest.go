package model

import (
	"errors"
	"fmt"
)

// Exported errors
var (
	// ErrDuplicateKey indicates an attempt to add a segment with an
	// identifier, or a slice with an index, already present in the manifest.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrUnknownKey indicates a lookup or removal for a segment identifier
	// or slice index not present in the manifest.
	ErrUnknownKey = errors.New("unknown key")

	// ErrBadIdentifier indicates an identifier which fails ValidIdentifier.
	ErrBadIdentifier = errors.New("invalid identifier")

	// ErrBadBoundingBox indicates a segment bounding box which does not fit
	// inside the image volume.
	ErrBadBoundingBox = errors.New("bounding box outside image")

	// ErrBadColor indicates a color component outside 0..255.
	ErrBadColor = errors.New("color component outside 0..255")
)

// Image describes the geometry of the voxel volume. It carries no sample
// data; see VoxelBuffer.
type Image struct {
	// PrecisionBytes is the width of one voxel sample. Positive.
	PrecisionBytes int

	// Size is the voxel extent per axis. Size[0] is the primary (slice)
	// axis. Immutable once a voxel buffer has been allocated for it.
	Size Point3

	// VoxelSize is the physical size of one voxel in mm, nil if unknown.
	VoxelSize *Vector3

	// VoxelSpacing is the center-to-center distance of neighbouring voxels
	// in mm, nil if unknown.
	VoxelSpacing *Vector3
}

// VoxelCount returns the number of voxels in the volume.
func (img Image) VoxelCount() int {
	return img.Size[0] * img.Size[1] * img.Size[2]
}

// Segment is a named sub-region of the volume. A segment may carry a
// boolean mask covering its bounding box; segments without a mask describe
// a region only by name and metadata.
type Segment struct {
	// Identifier names the segment. Unique within a manifest.
	Identifier string

	// Slug is the name under which the segment's mask is stored in the
	// container, nil if the segment has no stored mask. The codec generates
	// one when needed and preserves an existing one across round trips; a
	// slug on a segment without a mask is not persisted.
	Slug *string

	// BoundingBox is the extent of the segment, nil if unbounded/unknown.
	// Always normalized (min corner first).
	BoundingBox *BoundingBox

	// Color is the suggested rendering color, nil if none.
	Color *Color

	// Mask holds one byte per voxel inside BoundingBox, in row-major order
	// with the last axis fastest. Nonzero means the voxel belongs to the
	// segment. Nil if the segment has no mask. When Mask is non-nil,
	// BoundingBox must be non-nil and len(Mask) == BoundingBox.Volume().
	Mask []byte

	// MetaData is the open metadata map of the segment. Never nil.
	MetaData MetaData
}

// Slice attaches metadata to one index along the primary axis.
type Slice struct {
	// Index is the slice position. Unique within a manifest. Indices are
	// not required to be contiguous or bounded by the image size.
	Index int

	// Identifier optionally names the slice, nil if unnamed.
	Identifier *string

	// MetaData is the open metadata map of the slice. Never nil.
	MetaData MetaData
}

// Manifest is the aggregate root for the metadata of one image volume: the
// image geometry, the top-level metadata map, and the owned segment and
// slice lists. Use NewManifest to construct one; the zero value is not
// usable.
//
// A Manifest is not safe for concurrent mutation. Treat each instance as
// owned by one operation at a time.
type Manifest struct {
	Image    Image
	MetaData MetaData

	segments  []*Segment
	slices    []*Slice
	segmentBy map[string]*Segment
	sliceBy   map[int]*Slice
}

// NewManifest creates an empty manifest for the given image geometry.
func NewManifest(img Image) *Manifest {
	return &Manifest{
		Image:     img,
		MetaData:  MetaData{},
		segmentBy: make(map[string]*Segment),
		sliceBy:   make(map[int]*Slice),
	}
}

// AddSegment adds a segment to the manifest. The segment identifier must be
// valid and not already taken. A non-nil bounding box is normalized and
// must lie within the image size; a non-nil mask must match the bounding
// box volume. The manifest takes ownership of the segment.
func (m *Manifest) AddSegment(seg *Segment) error {
	if !ValidIdentifier(seg.Identifier) {
		return fmt.Errorf("segment %q: %w", seg.Identifier, ErrBadIdentifier)
	}
	if _, ok := m.segmentBy[seg.Identifier]; ok {
		return fmt.Errorf("segment %q: %w", seg.Identifier, ErrDuplicateKey)
	}
	if seg.BoundingBox != nil {
		bb := seg.BoundingBox.Normalized()
		if !bb.Within(m.Image.Size) {
			return fmt.Errorf("segment %q: %w", seg.Identifier, ErrBadBoundingBox)
		}
		seg.BoundingBox = &bb
	}
	if seg.Mask != nil {
		if seg.BoundingBox == nil {
			return fmt.Errorf("segment %q: mask without bounding box: %w",
				seg.Identifier, ErrBadBoundingBox)
		}
		if len(seg.Mask) != seg.BoundingBox.Volume() {
			return fmt.Errorf("segment %q: mask has %d bytes, bounding box covers %d voxels",
				seg.Identifier, len(seg.Mask), seg.BoundingBox.Volume())
		}
	}
	if seg.Color != nil {
		for _, c := range seg.Color {
			if c < 0 || c > 255 {
				return fmt.Errorf("segment %q: %w", seg.Identifier, ErrBadColor)
			}
		}
	}
	if seg.MetaData == nil {
		seg.MetaData = MetaData{}
	}
	m.segments = append(m.segments, seg)
	m.segmentBy[seg.Identifier] = seg
	return nil
}

// Segment returns the segment with the given identifier, or nil if there is
// none.
func (m *Manifest) Segment(identifier string) *Segment {
	return m.segmentBy[identifier]
}

// HasSegment reports whether a segment with the given identifier exists.
func (m *Manifest) HasSegment(identifier string) bool {
	_, ok := m.segmentBy[identifier]
	return ok
}

// Segments returns the segments in insertion order. The returned slice is
// shared; do not modify it.
func (m *Manifest) Segments() []*Segment {
	return m.segments
}

// RemoveSegment removes the segment with the given identifier.
func (m *Manifest) RemoveSegment(identifier string) error {
	if _, ok := m.segmentBy[identifier]; !ok {
		return fmt.Errorf("segment %q: %w", identifier, ErrUnknownKey)
	}
	delete(m.segmentBy, identifier)
	for i, seg := range m.segments {
		if seg.Identifier == identifier {
			m.segments = append(m.segments[:i], m.segments[i+1:]...)
			break
		}
	}
	return nil
}

// AddSlice adds a slice to the manifest. The slice index must not already
// be taken and a non-nil identifier must be valid. The manifest takes
// ownership of the slice.
func (m *Manifest) AddSlice(sl *Slice) error {
	if _, ok := m.sliceBy[sl.Index]; ok {
		return fmt.Errorf("slice %d: %w", sl.Index, ErrDuplicateKey)
	}
	if sl.Identifier != nil && !ValidIdentifier(*sl.Identifier) {
		return fmt.Errorf("slice %d: %w", sl.Index, ErrBadIdentifier)
	}
	if sl.MetaData == nil {
		sl.MetaData = MetaData{}
	}
	m.slices = append(m.slices, sl)
	m.sliceBy[sl.Index] = sl
	return nil
}

// Slice returns the slice at the given index, or nil if there is none.
func (m *Manifest) Slice(index int) *Slice {
	return m.sliceBy[index]
}

// HasSlice reports whether a slice with the given index exists.
func (m *Manifest) HasSlice(index int) bool {
	_, ok := m.sliceBy[index]
	return ok
}

// Slices returns the slices in insertion order. The returned slice is
// shared; do not modify it.
func (m *Manifest) Slices() []*Slice {
	return m.slices
}

// RemoveSlice removes the slice with the given index.
func (m *Manifest) RemoveSlice(index int) error {
	if _, ok := m.sliceBy[index]; !ok {
		return fmt.Errorf("slice %d: %w", index, ErrUnknownKey)
	}
	delete(m.sliceBy, index)
	for i, sl := range m.slices {
		if sl.Index == index {
			m.slices = append(m.slices[:i], m.slices[i+1:]...)
			break
		}
	}
	return nil
}

// Container pairs a manifest with the voxel buffer it describes. The
// identifier is deduced from the file name on read and is never serialized.
type Container struct {
	Identifier string
	Manifest   *Manifest
	Voxels     *VoxelBuffer
}
