package model

import (
	"errors"
	"testing"
)

func testImage() Image {
	return Image{
		PrecisionBytes: 2,
		Size:           Point3{10, 10, 10},
	}
}

func TestAddSegmentDuplicate(t *testing.T) {
	m := NewManifest(testImage())
	err := m.AddSegment(&Segment{Identifier: "seg-1"})
	if err != nil {
		t.Fatalf("Got %v, expected nil", err)
	}
	err = m.AddSegment(&Segment{Identifier: "seg-1"})
	if !errors.Is(err, ErrDuplicateKey) {
		t.Errorf("Got %v, expected ErrDuplicateKey", err)
	}
	if len(m.Segments()) != 1 {
		t.Errorf("Got %d segments, expected 1", len(m.Segments()))
	}
}

func TestAddSliceDuplicate(t *testing.T) {
	m := NewManifest(testImage())
	err := m.AddSlice(&Slice{Index: 5})
	if err != nil {
		t.Fatalf("Got %v, expected nil", err)
	}
	err = m.AddSlice(&Slice{Index: 5})
	if !errors.Is(err, ErrDuplicateKey) {
		t.Errorf("Got %v, expected ErrDuplicateKey", err)
	}
}

func TestSegmentLookup(t *testing.T) {
	m := NewManifest(testImage())
	for _, id := range []string{"left lung", "right lung", "heart"} {
		if err := m.AddSegment(&Segment{Identifier: id}); err != nil {
			t.Fatalf("Got %v, expected nil", err)
		}
	}
	if seg := m.Segment("heart"); seg == nil || seg.Identifier != "heart" {
		t.Errorf("Got %v, expected heart", seg)
	}
	if m.Segment("liver") != nil {
		t.Errorf("Got a segment for liver, expected nil")
	}
	if !m.HasSegment("left lung") {
		t.Errorf("Expected left lung to exist")
	}
	if err := m.RemoveSegment("heart"); err != nil {
		t.Fatalf("Got %v, expected nil", err)
	}
	if m.HasSegment("heart") {
		t.Errorf("heart still present after removal")
	}
	if err := m.RemoveSegment("heart"); !errors.Is(err, ErrUnknownKey) {
		t.Errorf("Got %v, expected ErrUnknownKey", err)
	}
	if got := len(m.Segments()); got != 2 {
		t.Errorf("Got %d segments, expected 2", got)
	}
}

func TestSliceLookup(t *testing.T) {
	m := NewManifest(testImage())
	name := "top"
	if err := m.AddSlice(&Slice{Index: 0, Identifier: &name}); err != nil {
		t.Fatalf("Got %v, expected nil", err)
	}
	if err := m.AddSlice(&Slice{Index: 7}); err != nil {
		t.Fatalf("Got %v, expected nil", err)
	}
	sl := m.Slice(0)
	if sl == nil || sl.Identifier == nil || *sl.Identifier != "top" {
		t.Errorf("Got %v, expected slice top", sl)
	}
	if m.Slice(3) != nil {
		t.Errorf("Got a slice for index 3, expected nil")
	}
	if err := m.RemoveSlice(7); err != nil {
		t.Fatalf("Got %v, expected nil", err)
	}
	if err := m.RemoveSlice(7); !errors.Is(err, ErrUnknownKey) {
		t.Errorf("Got %v, expected ErrUnknownKey", err)
	}
}

func TestAddSegmentBoundingBox(t *testing.T) {
	var table = []struct {
		name string
		bb   BoundingBox
		err  error
	}{
		{"inside", BoundingBox{{0, 0, 0}, {9, 9, 9}}, nil},
		{"reversed", BoundingBox{{9, 9, 9}, {0, 0, 0}}, nil},
		{"negative", BoundingBox{{-1, 0, 0}, {2, 2, 2}}, ErrBadBoundingBox},
		{"too big", BoundingBox{{0, 0, 0}, {10, 9, 9}}, ErrBadBoundingBox},
	}
	for _, test := range table {
		m := NewManifest(testImage())
		bb := test.bb
		err := m.AddSegment(&Segment{Identifier: test.name, BoundingBox: &bb})
		if !errors.Is(err, test.err) {
			t.Errorf("%s: Got %v, expected %v", test.name, err, test.err)
		}
	}
}

func TestBoundingBoxNormalized(t *testing.T) {
	m := NewManifest(testImage())
	bb := BoundingBox{{9, 0, 5}, {1, 8, 2}}
	err := m.AddSegment(&Segment{Identifier: "x", BoundingBox: &bb})
	if err != nil {
		t.Fatalf("Got %v, expected nil", err)
	}
	got := *m.Segment("x").BoundingBox
	want := BoundingBox{{1, 0, 2}, {9, 8, 5}}
	if got != want {
		t.Errorf("Got %v, expected %v", got, want)
	}
}

func TestAddSegmentColor(t *testing.T) {
	m := NewManifest(testImage())
	bad := Color{0, 256, 0}
	err := m.AddSegment(&Segment{Identifier: "x", Color: &bad})
	if !errors.Is(err, ErrBadColor) {
		t.Errorf("Got %v, expected ErrBadColor", err)
	}
	good := Color{80, 100, 200}
	err = m.AddSegment(&Segment{Identifier: "x", Color: &good})
	if err != nil {
		t.Errorf("Got %v, expected nil", err)
	}
}

func TestAddSegmentMask(t *testing.T) {
	m := NewManifest(testImage())
	bb := BoundingBox{{0, 0, 0}, {1, 1, 1}}
	err := m.AddSegment(&Segment{
		Identifier:  "x",
		BoundingBox: &bb,
		Mask:        make([]byte, 7), // bounding box covers 8 voxels
	})
	if err == nil {
		t.Errorf("Got nil, expected a mask length error")
	}
	err = m.AddSegment(&Segment{Identifier: "y", Mask: make([]byte, 8)})
	if !errors.Is(err, ErrBadBoundingBox) {
		t.Errorf("Got %v, expected ErrBadBoundingBox", err)
	}
	err = m.AddSegment(&Segment{
		Identifier:  "z",
		BoundingBox: &bb,
		Mask:        make([]byte, 8),
	})
	if err != nil {
		t.Errorf("Got %v, expected nil", err)
	}
}

func TestBadIdentifiers(t *testing.T) {
	m := NewManifest(testImage())
	for _, id := range []string{"", "nope/nope", "ümlaut"} {
		err := m.AddSegment(&Segment{Identifier: id})
		if !errors.Is(err, ErrBadIdentifier) {
			t.Errorf("%q: Got %v, expected ErrBadIdentifier", id, err)
		}
	}
	bad := "no/slash"
	err := m.AddSlice(&Slice{Index: 0, Identifier: &bad})
	if !errors.Is(err, ErrBadIdentifier) {
		t.Errorf("Got %v, expected ErrBadIdentifier", err)
	}
}
