/*

Package gmh reads and writes GMH container files: one validated manifest
document paired with the raw voxel volume it describes, plus any stored
segment masks.

A container is a zip archive whose members are stored uncompressed
(zip.Store). The zip directory records the byte length of every member, so
a decoder can locate and size each section without knowing the overall file
size in advance. The members are:

	manifest.json   the manifest document, UTF-8 JSON
	voxels          the raw voxel samples, exactly
	                size[0]*size[1]*size[2]*precision_bytes bytes,
	                little-endian, row-major with the third axis fastest
	mask/<slug>     one member per stored segment mask, one byte per voxel
	                of the segment's bounding box, same ordering

The manifest document has a fixed structural schema (see Validate). It is
checked on every decode before anything in it is trusted, and on every
encode before the container is written, so an unreadable container is never
produced.

Adapter is the filesystem entry point. It writes through a scratch file
followed by a rename, so no reader ever observes a half-written container,
and it refuses to replace an existing file unless asked to.

*/
package gmh
