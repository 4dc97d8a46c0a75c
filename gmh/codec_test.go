package gmh

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/gmh-format/gmh/model"
)

// canonical returns the manifest's wire document as canonical JSON, used to
// compare manifests structurally (key order irrelevant, numbers exact).
func canonical(t *testing.T, m *model.Manifest) string {
	b, err := json.Marshal(buildManifestDoc(m))
	if err != nil {
		t.Fatalf("Got %v, expected nil", err)
	}
	return string(b)
}

func exampleContainer(t *testing.T) (*model.Manifest, *model.VoxelBuffer) {
	img := model.Image{
		PrecisionBytes: 2,
		Size:           model.Point3{2, 2, 1},
		VoxelSpacing:   &model.Vector3{1.0, 1.0, 1.0},
	}
	m := model.NewManifest(img)
	if err := m.AddSegment(&model.Segment{Identifier: "a"}); err != nil {
		t.Fatalf("Got %v, expected nil", err)
	}
	if err := m.AddSlice(&model.Slice{Index: 0}); err != nil {
		t.Fatalf("Got %v, expected nil", err)
	}
	v, err := model.NewVoxelBuffer(img.Size, img.PrecisionBytes)
	if err != nil {
		t.Fatalf("Got %v, expected nil", err)
	}
	return m, v
}

func TestRoundTripExample(t *testing.T) {
	m, v := exampleContainer(t)
	var c Codec
	b, err := c.EncodeBytes(m, v)
	if err != nil {
		t.Fatalf("Got %v, expected nil", err)
	}
	m2, v2, err := c.DecodeBytes(b)
	if err != nil {
		t.Fatalf("Got %v, expected nil", err)
	}
	if got, want := canonical(t, m2), canonical(t, m); got != want {
		t.Errorf("Got manifest %s, expected %s", got, want)
	}
	if !bytes.Equal(v2.Bytes(), v.Bytes()) {
		t.Errorf("voxel buffers differ")
	}
}

func TestRoundTripRich(t *testing.T) {
	img := model.Image{
		PrecisionBytes: 4,
		Size:           model.Point3{4, 3, 5},
		VoxelSize:      &model.Vector3{1.0, 2.0, 3.0},
		VoxelSpacing:   &model.Vector3{2.0, 3.0, 1.0},
	}
	m := model.NewManifest(img)
	m.MetaData = model.MetaData{
		"attr1": 1,
		"attr2": "foobar",
		"attr3": false,
		"attr4": nil,
		"attr5": 2.5,
		"attr6": []interface{}{"foo", "bar"},
		"attr7": map[string]interface{}{"some": "thing"},
		// survives only through json.Number handling
		"attr8": json.Number("72057594037927936"),
	}
	bb := model.BoundingBox{{1, 0, 2}, {2, 2, 4}}
	color := model.Color{80, 100, 200}
	mask := make([]byte, bb.Volume())
	for i := range mask {
		mask[i] = byte(i % 2)
	}
	err := m.AddSegment(&model.Segment{
		Identifier:  "segment1",
		BoundingBox: &bb,
		Color:       &color,
		Mask:        mask,
		MetaData:    model.MetaData{"foo": "bar"},
	})
	if err != nil {
		t.Fatalf("Got %v, expected nil", err)
	}
	if err := m.AddSegment(&model.Segment{Identifier: "segment2"}); err != nil {
		t.Fatalf("Got %v, expected nil", err)
	}
	name := "slice1"
	err = m.AddSlice(&model.Slice{
		Index:      0,
		Identifier: &name,
		MetaData:   model.MetaData{"something": 1},
	})
	if err != nil {
		t.Fatalf("Got %v, expected nil", err)
	}

	v, err := model.NewVoxelBuffer(img.Size, img.PrecisionBytes)
	if err != nil {
		t.Fatalf("Got %v, expected nil", err)
	}
	for i, b := range v.Bytes() {
		v.Bytes()[i] = byte(i*7 + int(b))
	}

	var c Codec
	b, err := c.EncodeBytes(m, v)
	if err != nil {
		t.Fatalf("Got %v, expected nil", err)
	}

	// the first encode assigned a slug for segment1's mask
	seg := m.Segment("segment1")
	if seg.Slug == nil {
		t.Fatalf("no slug assigned to segment1")
	}
	// encoding is deterministic once slugs are fixed
	b2, err := c.EncodeBytes(m, v)
	if err != nil {
		t.Fatalf("Got %v, expected nil", err)
	}
	if !bytes.Equal(b, b2) {
		t.Errorf("two encodes of the same container differ")
	}

	m2, v2, err := c.DecodeBytes(b)
	if err != nil {
		t.Fatalf("Got %v, expected nil", err)
	}
	if got, want := canonical(t, m2), canonical(t, m); got != want {
		t.Errorf("Got manifest %s, expected %s", got, want)
	}
	if !bytes.Equal(v2.Bytes(), v.Bytes()) {
		t.Errorf("voxel buffers differ")
	}
	seg2 := m2.Segment("segment1")
	if seg2 == nil || !bytes.Equal(seg2.Mask, mask) {
		t.Errorf("mask did not survive the round trip")
	}
	if *m2.Segment("segment1").Slug != *seg.Slug {
		t.Errorf("Got slug %q, expected %q", *seg2.Slug, *seg.Slug)
	}
	if m2.Segment("segment2").Mask != nil {
		t.Errorf("segment2 grew a mask")
	}
}

func TestRoundTripSlugWithoutMask(t *testing.T) {
	// a slug on a mask-less segment must not end up in the container, or it
	// would declare a mask member that was never written
	m, v := exampleContainer(t)
	slug := "abcde"
	m.Segment("a").Slug = &slug

	var c Codec
	b, err := c.EncodeBytes(m, v)
	if err != nil {
		t.Fatalf("Got %v, expected nil", err)
	}
	m2, _, err := c.DecodeBytes(b)
	if err != nil {
		t.Fatalf("Got %v, expected nil", err)
	}
	seg := m2.Segment("a")
	if seg.Slug != nil {
		t.Errorf("Got slug %q, expected none", *seg.Slug)
	}
	if seg.Mask != nil {
		t.Errorf("segment grew a mask")
	}
}

func TestEncodeShapeMismatch(t *testing.T) {
	m, _ := exampleContainer(t)
	v, _ := model.NewVoxelBuffer(model.Point3{2, 2, 2}, 2)
	var c Codec
	if _, err := c.EncodeBytes(m, v); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("Got %v, expected ErrShapeMismatch", err)
	}
	v, _ = model.NewVoxelBuffer(model.Point3{2, 2, 1}, 4)
	if _, err := c.EncodeBytes(m, v); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("Got %v, expected ErrShapeMismatch", err)
	}
}

// rawContainer builds a container file directly, bypassing Encode's
// validation, so decode failure paths can be exercised.
func rawContainer(t *testing.T, members map[string][]byte) []byte {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range members {
		w, err := makeStream(zw, name)
		if err != nil {
			t.Fatalf("Got %v, expected nil", err)
		}
		if _, err := w.Write(content); err != nil {
			t.Fatalf("Got %v, expected nil", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("Got %v, expected nil", err)
	}
	return buf.Bytes()
}

func TestDecodeTruncatedVoxels(t *testing.T) {
	// the manifest declares 2*2*1*2 = 8 voxel bytes
	var table = []struct {
		name    string
		members map[string][]byte
	}{
		{"short voxel section", map[string][]byte{
			manifestMember: []byte(exampleManifest),
			voxelMember:    make([]byte, 4),
		}},
		{"no voxel section", map[string][]byte{
			manifestMember: []byte(exampleManifest),
		}},
	}
	var c Codec
	for _, test := range table {
		_, _, err := c.DecodeBytes(rawContainer(t, test.members))
		if !errors.Is(err, ErrTruncated) {
			t.Errorf("%s: Got %v, expected ErrTruncated", test.name, err)
		}
	}
}

func maskedManifest(slug string) []byte {
	return []byte(fmt.Sprintf(`{
		"image": {"precision_bytes": 1, "size": [2, 2, 2],
		          "voxel_size": null, "voxel_spacing": null},
		"meta_data": {},
		"segments": [{"identifier": "a", "slug": %q,
		              "bounding_box": [[0,0,0],[1,1,0]],
		              "color": null, "meta_data": {}}],
		"slices": []
	}`, slug))
}

func TestDecodeTruncatedMask(t *testing.T) {
	// bounding box covers 4 voxels
	var table = []struct {
		name    string
		members map[string][]byte
	}{
		{"short mask", map[string][]byte{
			manifestMember: maskedManifest("abcde"),
			voxelMember:    make([]byte, 8),
			"mask/abcde":   make([]byte, 2),
		}},
		{"missing mask", map[string][]byte{
			manifestMember: maskedManifest("abcde"),
			voxelMember:    make([]byte, 8),
		}},
	}
	var c Codec
	for _, test := range table {
		_, _, err := c.DecodeBytes(rawContainer(t, test.members))
		if !errors.Is(err, ErrTruncated) {
			t.Errorf("%s: Got %v, expected ErrTruncated", test.name, err)
		}
	}
}

func TestDecodeOversizedVoxelSection(t *testing.T) {
	var c Codec
	_, _, err := c.DecodeBytes(rawContainer(t, map[string][]byte{
		manifestMember: []byte(exampleManifest),
		voxelMember:    make([]byte, 12),
	}))
	if !errors.Is(err, ErrBadContainer) {
		t.Errorf("Got %v, expected ErrBadContainer", err)
	}
}

func TestDecodeRejectsHugeVolume(t *testing.T) {
	manifest := []byte(`{
		"image": {"precision_bytes": 8, "size": [100000, 100000, 100000],
		          "voxel_size": null, "voxel_spacing": null},
		"meta_data": {}, "segments": [], "slices": []
	}`)
	var c Codec
	_, _, err := c.DecodeBytes(rawContainer(t, map[string][]byte{
		manifestMember: manifest,
	}))
	if !errors.Is(err, ErrTooLarge) {
		t.Errorf("Got %v, expected ErrTooLarge", err)
	}

	// a small configured ceiling rejects even modest volumes
	small := Codec{MaxVoxelBytes: 4}
	_, _, err = small.DecodeBytes(rawContainer(t, map[string][]byte{
		manifestMember: []byte(exampleManifest),
		voxelMember:    make([]byte, 8),
	}))
	if !errors.Is(err, ErrTooLarge) {
		t.Errorf("Got %v, expected ErrTooLarge", err)
	}
}

func TestDecodeRejectsBadManifest(t *testing.T) {
	b := rawContainer(t, map[string][]byte{
		manifestMember: []byte(`{"image": {}, "meta_data": {}, "segments": [], "slices": [], "x": 1}`),
		voxelMember:    []byte{},
	})
	var c Codec
	_, _, err := c.DecodeBytes(b)
	se, ok := err.(*SchemaError)
	if !ok {
		t.Fatalf("Got %v, expected a *SchemaError", err)
	}
	if se.Path != "x" {
		t.Errorf("Got path %q, expected x", se.Path)
	}
}

func TestDecodeRejectsDuplicateSegment(t *testing.T) {
	manifest := []byte(`{
		"image": {"precision_bytes": 1, "size": [1, 1, 1],
		          "voxel_size": null, "voxel_spacing": null},
		"meta_data": {},
		"segments": [
			{"identifier": "a", "slug": null, "bounding_box": null,
			 "color": null, "meta_data": {}},
			{"identifier": "a", "slug": null, "bounding_box": null,
			 "color": null, "meta_data": {}}
		],
		"slices": []
	}`)
	var c Codec
	_, _, err := c.DecodeBytes(rawContainer(t, map[string][]byte{
		manifestMember: manifest,
		voxelMember:    make([]byte, 1),
	}))
	if !errors.Is(err, model.ErrDuplicateKey) {
		t.Errorf("Got %v, expected ErrDuplicateKey", err)
	}
}

func TestDecodeGarbage(t *testing.T) {
	var c Codec
	_, _, err := c.DecodeBytes([]byte("this is not a container"))
	if !errors.Is(err, ErrBadContainer) {
		t.Errorf("Got %v, expected ErrBadContainer", err)
	}
	// a zip with no manifest member
	_, _, err = c.DecodeBytes(rawContainer(t, map[string][]byte{
		voxelMember: make([]byte, 8),
	}))
	if !errors.Is(err, ErrBadContainer) {
		t.Errorf("Got %v, expected ErrBadContainer", err)
	}
}

func TestDecodeZeroVolume(t *testing.T) {
	manifest := []byte(`{
		"image": {"precision_bytes": 4, "size": [0, 10, 10],
		          "voxel_size": null, "voxel_spacing": null},
		"meta_data": {}, "segments": [], "slices": []
	}`)
	var c Codec
	m, v, err := c.DecodeBytes(rawContainer(t, map[string][]byte{
		manifestMember: manifest,
		voxelMember:    {},
	}))
	if err != nil {
		t.Fatalf("Got %v, expected nil", err)
	}
	if v.ByteLen() != 0 {
		t.Errorf("Got %d bytes, expected 0", v.ByteLen())
	}
	if m.Image.VoxelCount() != 0 {
		t.Errorf("Got %d voxels, expected 0", m.Image.VoxelCount())
	}
}
