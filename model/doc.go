/*

Package model holds the in-memory representation of a GMH volumetric image:
the manifest aggregate (image geometry, segments, slices, and open metadata)
and the raw voxel buffer it describes.

A Manifest exclusively owns its segment and slice lists. Segments are keyed
by identifier and slices by index, and both are unique within one manifest.
The voxel buffer is a flat, fixed-shape byte array whose length is always
X*Y*Z*precision bytes; its shape is set at allocation and never changes.

Nothing in this package knows about files or byte framing. Serialization of
these types is handled by the gmh package.

*/
package model
