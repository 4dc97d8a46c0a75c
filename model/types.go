package model

// Point3 is a 3D coordinate or extent in voxel index space.
// The first axis is the primary (slice) axis.
type Point3 [3]int

// Vector3 is a physical 3-vector, in millimeters.
type Vector3 [3]float64

// Color is an RGB triple. Components are in 0..255.
type Color [3]int

// MetaData is an open key-value map attached to images, segments, and
// slices. Values are restricted to what survives a JSON round trip:
// strings, numbers, booleans, nil, []interface{}, and nested
// map[string]interface{}.
type MetaData map[string]interface{}

// BoundingBox is a pair of inclusive corner coordinates, min then max.
type BoundingBox [2]Point3

// Normalized returns a copy of the bounding box with the corners reordered
// so that the minimum corner comes first on every axis. The serialized form
// does not promise an ordering, so it is normalized on the way in.
func (b BoundingBox) Normalized() BoundingBox {
	for i := 0; i < 3; i++ {
		if b[0][i] > b[1][i] {
			b[0][i], b[1][i] = b[1][i], b[0][i]
		}
	}
	return b
}

// Within returns whether the (normalized) bounding box lies inside a volume
// of the given size.
func (b BoundingBox) Within(size Point3) bool {
	for i := 0; i < 3; i++ {
		if b[0][i] < 0 || b[1][i] >= size[i] {
			return false
		}
	}
	return true
}

// Volume returns the number of voxels covered by the bounding box. Corners
// are inclusive, so a degenerate box still covers one voxel per axis.
func (b BoundingBox) Volume() int {
	n := 1
	for i := 0; i < 3; i++ {
		n *= b[1][i] - b[0][i] + 1
	}
	return n
}
