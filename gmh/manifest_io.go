package gmh

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"

	"github.com/gmh-format/gmh/model"
)

// On-disk serialization of the manifest document.
// Use this indirection so the model types can change without disturbing
// what previously written containers look like.
type manifestDoc struct {
	Image    imageDoc               `json:"image"`
	MetaData map[string]interface{} `json:"meta_data"`
	Segments []segmentDoc           `json:"segments"`
	Slices   []sliceDoc             `json:"slices"`
}

type imageDoc struct {
	PrecisionBytes int        `json:"precision_bytes"`
	Size           [3]int     `json:"size"`
	VoxelSize      *[]float64 `json:"voxel_size"`
	VoxelSpacing   *[]float64 `json:"voxel_spacing"`
}

type segmentDoc struct {
	BoundingBox *[2][3]int             `json:"bounding_box"`
	Slug        *string                `json:"slug"`
	Color       *[3]int                `json:"color"`
	Identifier  string                 `json:"identifier"`
	MetaData    map[string]interface{} `json:"meta_data"`
}

type sliceDoc struct {
	Identifier *string                `json:"identifier"`
	Index      int                    `json:"index"`
	MetaData   map[string]interface{} `json:"meta_data"`
}

// buildManifestDoc maps the in-memory manifest onto its wire form.
func buildManifestDoc(m *model.Manifest) manifestDoc {
	doc := manifestDoc{
		Image: imageDoc{
			PrecisionBytes: m.Image.PrecisionBytes,
			Size:           m.Image.Size,
			VoxelSize:      vectorDoc(m.Image.VoxelSize),
			VoxelSpacing:   vectorDoc(m.Image.VoxelSpacing),
		},
		MetaData: metaDoc(m.MetaData),
		Segments: make([]segmentDoc, 0, len(m.Segments())),
		Slices:   make([]sliceDoc, 0, len(m.Slices())),
	}
	for _, seg := range m.Segments() {
		sd := segmentDoc{
			Identifier: seg.Identifier,
			MetaData:   metaDoc(seg.MetaData),
		}
		// a slug names a stored mask member; without a mask it is not
		// written, or the container would declare a member that is not there
		if seg.Mask != nil {
			sd.Slug = seg.Slug
		}
		if seg.BoundingBox != nil {
			bb := [2][3]int{seg.BoundingBox[0], seg.BoundingBox[1]}
			sd.BoundingBox = &bb
		}
		if seg.Color != nil {
			c := [3]int(*seg.Color)
			sd.Color = &c
		}
		doc.Segments = append(doc.Segments, sd)
	}
	for _, sl := range m.Slices() {
		doc.Slices = append(doc.Slices, sliceDoc{
			Identifier: sl.Identifier,
			Index:      sl.Index,
			MetaData:   metaDoc(sl.MetaData),
		})
	}
	return doc
}

// decodeManifestDoc parses a manifest section into its wire form. The bytes
// must already have passed Validate. Numbers inside the open metadata maps
// are kept as json.Number so they re-encode exactly as they were read.
func decodeManifestDoc(b []byte) (manifestDoc, error) {
	var doc manifestDoc
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return doc, errors.Wrap(err, "decoding manifest")
	}
	return doc, nil
}

// manifestFromDoc rebuilds the model aggregate from the wire form. The
// schema has been checked already; this enforces the semantic invariants
// the schema cannot express (positive precision, non-negative size, vector
// lengths, identifier uniqueness, bounding box containment).
func manifestFromDoc(doc manifestDoc) (*model.Manifest, error) {
	if doc.Image.PrecisionBytes < 1 {
		return nil, &SchemaError{Path: "image.precision_bytes", Reason: "must be positive"}
	}
	for i, d := range doc.Image.Size {
		if d < 0 {
			return nil, &SchemaError{
				Path:   fmt.Sprintf("image.size[%d]", i),
				Reason: "must be non-negative",
			}
		}
	}
	img := model.Image{
		PrecisionBytes: doc.Image.PrecisionBytes,
		Size:           doc.Image.Size,
	}
	var err error
	img.VoxelSize, err = vectorFromDoc("image.voxel_size", doc.Image.VoxelSize)
	if err != nil {
		return nil, err
	}
	img.VoxelSpacing, err = vectorFromDoc("image.voxel_spacing", doc.Image.VoxelSpacing)
	if err != nil {
		return nil, err
	}

	m := model.NewManifest(img)
	if doc.MetaData != nil {
		m.MetaData = model.MetaData(doc.MetaData)
	}
	for i, sd := range doc.Segments {
		seg := &model.Segment{
			Identifier: sd.Identifier,
			Slug:       sd.Slug,
			MetaData:   model.MetaData(sd.MetaData),
		}
		if sd.BoundingBox != nil {
			bb := model.BoundingBox{sd.BoundingBox[0], sd.BoundingBox[1]}
			seg.BoundingBox = &bb
		}
		if sd.Color != nil {
			c := model.Color(*sd.Color)
			seg.Color = &c
		}
		if err := m.AddSegment(seg); err != nil {
			return nil, errors.Wrapf(err, "segments[%d]", i)
		}
	}
	for i, sd := range doc.Slices {
		sl := &model.Slice{
			Index:      sd.Index,
			Identifier: sd.Identifier,
			MetaData:   model.MetaData(sd.MetaData),
		}
		if err := m.AddSlice(sl); err != nil {
			return nil, errors.Wrapf(err, "slices[%d]", i)
		}
	}
	return m, nil
}

func vectorDoc(v *model.Vector3) *[]float64 {
	if v == nil {
		return nil
	}
	s := []float64{v[0], v[1], v[2]}
	return &s
}

func vectorFromDoc(path string, s *[]float64) (*model.Vector3, error) {
	if s == nil {
		return nil, nil
	}
	// the schema allows any length here; the model is strictly 3D
	if len(*s) != 3 {
		return nil, &SchemaError{Path: path, Reason: "expected 3 components"}
	}
	v := model.Vector3{(*s)[0], (*s)[1], (*s)[2]}
	return &v, nil
}

func metaDoc(md model.MetaData) map[string]interface{} {
	if md == nil {
		return map[string]interface{}{}
	}
	return md
}
