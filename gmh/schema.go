package gmh

import (
	"fmt"
	"sort"

	"github.com/antonholmquist/jason"
)

/*
The manifest schema is fixed and compiled in. A manifest document is a JSON
object of exactly this shape, with no additional keys anywhere:

	{
	  "image": {
	    "precision_bytes": int,
	    "size": [int, int, int],
	    "voxel_size": [number, ...] | null,
	    "voxel_spacing": [number, ...] | null
	  },
	  "meta_data": { ... },
	  "segments": [
	    {
	      "bounding_box": [[int,int,int],[int,int,int]] | null,
	      "slug": string | null,
	      "color": [int, int, int] | null,
	      "identifier": string,
	      "meta_data": { ... }
	    }
	  ],
	  "slices": [
	    {
	      "identifier": string | null,
	      "index": int,
	      "meta_data": { ... }
	    }
	  ]
	}
*/

// Validate checks a generic document against the manifest schema. It is a
// pure structural check: key sets, types, and array shapes. Semantic rules
// (identifier uniqueness, bounding box containment) are enforced by the
// model, not here.
//
// The returned error is a *SchemaError naming the first offending path, or
// nil if the document conforms.
func Validate(doc *jason.Object) error {
	m := doc.Map()
	if err := checkKeys("", m, "image", "meta_data", "segments", "slices"); err != nil {
		return err
	}

	img, err := m["image"].Object()
	if err != nil {
		return &SchemaError{Path: "image", Reason: "expected object"}
	}
	im := img.Map()
	if err := checkKeys("image.", im, "precision_bytes", "size", "voxel_size", "voxel_spacing"); err != nil {
		return err
	}
	if _, err := im["precision_bytes"].Int64(); err != nil {
		return &SchemaError{Path: "image.precision_bytes", Reason: "expected integer"}
	}
	if err := checkIntArray("image.size", im["size"], 3); err != nil {
		return err
	}
	if err := checkNumberArrayOrNull("image.voxel_size", im["voxel_size"]); err != nil {
		return err
	}
	if err := checkNumberArrayOrNull("image.voxel_spacing", im["voxel_spacing"]); err != nil {
		return err
	}

	if err := checkObject("meta_data", m["meta_data"]); err != nil {
		return err
	}

	segments, err := m["segments"].Array()
	if err != nil {
		return &SchemaError{Path: "segments", Reason: "expected array"}
	}
	for i, v := range segments {
		if err := validateSegment(fmt.Sprintf("segments[%d]", i), v); err != nil {
			return err
		}
	}

	slices, err := m["slices"].Array()
	if err != nil {
		return &SchemaError{Path: "slices", Reason: "expected array"}
	}
	for i, v := range slices {
		if err := validateSlice(fmt.Sprintf("slices[%d]", i), v); err != nil {
			return err
		}
	}
	return nil
}

// ValidateBytes parses b as JSON and validates it against the manifest
// schema.
func ValidateBytes(b []byte) error {
	doc, err := jason.NewObjectFromBytes(b)
	if err != nil {
		return &SchemaError{Path: "", Reason: "expected JSON object"}
	}
	return Validate(doc)
}

func validateSegment(path string, v *jason.Value) error {
	obj, err := v.Object()
	if err != nil {
		return &SchemaError{Path: path, Reason: "expected object"}
	}
	m := obj.Map()
	if err := checkKeys(path+".", m, "bounding_box", "slug", "color", "identifier", "meta_data"); err != nil {
		return err
	}
	if m["bounding_box"].Null() != nil {
		corners, err := m["bounding_box"].Array()
		if err != nil || len(corners) != 2 {
			return &SchemaError{
				Path:   path + ".bounding_box",
				Reason: "expected pair of coordinates or null",
			}
		}
		for j, c := range corners {
			p := fmt.Sprintf("%s.bounding_box[%d]", path, j)
			if err := checkIntArray(p, c, 3); err != nil {
				return err
			}
		}
	}
	if m["slug"].Null() != nil {
		if _, err := m["slug"].String(); err != nil {
			return &SchemaError{Path: path + ".slug", Reason: "expected string or null"}
		}
	}
	if m["color"].Null() != nil {
		if err := checkIntArray(path+".color", m["color"], 3); err != nil {
			return err
		}
	}
	if _, err := m["identifier"].String(); err != nil {
		return &SchemaError{Path: path + ".identifier", Reason: "expected string"}
	}
	return checkObject(path+".meta_data", m["meta_data"])
}

func validateSlice(path string, v *jason.Value) error {
	obj, err := v.Object()
	if err != nil {
		return &SchemaError{Path: path, Reason: "expected object"}
	}
	m := obj.Map()
	if err := checkKeys(path+".", m, "identifier", "index", "meta_data"); err != nil {
		return err
	}
	if m["identifier"].Null() != nil {
		if _, err := m["identifier"].String(); err != nil {
			return &SchemaError{Path: path + ".identifier", Reason: "expected string or null"}
		}
	}
	if _, err := m["index"].Int64(); err != nil {
		return &SchemaError{Path: path + ".index", Reason: "expected integer"}
	}
	return checkObject(path+".meta_data", m["meta_data"])
}

// checkKeys verifies the object holds exactly the wanted keys: every wanted
// key present, and nothing else. Extra keys are reported in sorted order so
// the error is deterministic.
func checkKeys(prefix string, m map[string]*jason.Value, want ...string) error {
	for _, k := range want {
		if _, ok := m[k]; !ok {
			return &SchemaError{Path: prefix + k, Reason: "missing required key"}
		}
	}
	if len(m) == len(want) {
		return nil
	}
	var extra []string
	for k := range m {
		if !contains(want, k) {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	return &SchemaError{Path: prefix + extra[0], Reason: "additional key not permitted"}
}

func checkIntArray(path string, v *jason.Value, n int) error {
	arr, err := v.Array()
	if err != nil || len(arr) != n {
		return &SchemaError{
			Path:   path,
			Reason: fmt.Sprintf("expected array of %d integers", n),
		}
	}
	for i, e := range arr {
		if _, err := e.Int64(); err != nil {
			return &SchemaError{
				Path:   fmt.Sprintf("%s[%d]", path, i),
				Reason: "expected integer",
			}
		}
	}
	return nil
}

func checkNumberArrayOrNull(path string, v *jason.Value) error {
	if v.Null() == nil {
		return nil
	}
	arr, err := v.Array()
	if err != nil {
		return &SchemaError{Path: path, Reason: "expected array of numbers or null"}
	}
	for i, e := range arr {
		if _, err := e.Float64(); err != nil {
			return &SchemaError{
				Path:   fmt.Sprintf("%s[%d]", path, i),
				Reason: "expected number",
			}
		}
	}
	return nil
}

func checkObject(path string, v *jason.Value) error {
	if _, err := v.Object(); err != nil {
		return &SchemaError{Path: path, Reason: "expected object"}
	}
	return nil
}

func contains(lst []string, s string) bool {
	for i := range lst {
		if lst[i] == s {
			return true
		}
	}
	return false
}
