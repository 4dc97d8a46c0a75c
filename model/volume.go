package model

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Exported errors
var (
	// ErrOutOfBounds indicates a voxel coordinate outside the buffer shape.
	ErrOutOfBounds = errors.New("voxel coordinate out of bounds")

	// ErrBadShape indicates a negative dimension or non-positive sample
	// width at buffer allocation.
	ErrBadShape = errors.New("invalid buffer shape")

	// ErrBadPrecision indicates a sample access on a buffer whose sample
	// width is not 1, 2, 4, or 8 bytes.
	ErrBadPrecision = errors.New("unsupported sample width")
)

// VoxelBuffer is the raw sample storage of one image volume: a flat,
// zero-initialized byte array of exactly X*Y*Z*precision bytes. The shape
// and sample width are fixed at allocation.
//
// The buffer is precision-agnostic raw storage. Sample and SetSample move
// raw little-endian values of the configured width; whether those bits are
// signed, unsigned, or floating point is up to the caller.
//
// Layout is row-major with the first axis slowest and the third fastest,
// so one slice of the primary axis is a contiguous run of bytes.
type VoxelBuffer struct {
	size      Point3
	precision int
	data      []byte
}

// NewVoxelBuffer allocates a zero-filled buffer for the given shape.
// Dimensions must be non-negative and precisionBytes positive.
func NewVoxelBuffer(size Point3, precisionBytes int) (*VoxelBuffer, error) {
	if precisionBytes < 1 {
		return nil, fmt.Errorf("precision %d: %w", precisionBytes, ErrBadShape)
	}
	for _, d := range size {
		if d < 0 {
			return nil, fmt.Errorf("size %v: %w", size, ErrBadShape)
		}
	}
	n := size[0] * size[1] * size[2] * precisionBytes
	return &VoxelBuffer{
		size:      size,
		precision: precisionBytes,
		data:      make([]byte, n),
	}, nil
}

// Size returns the voxel extent per axis.
func (v *VoxelBuffer) Size() Point3 { return v.size }

// PrecisionBytes returns the sample width in bytes.
func (v *VoxelBuffer) PrecisionBytes() int { return v.precision }

// ByteLen returns the total length of the buffer in bytes.
func (v *VoxelBuffer) ByteLen() int { return len(v.data) }

// Bytes returns the backing byte array. The returned slice is shared with
// the buffer; writing to it writes to the buffer.
func (v *VoxelBuffer) Bytes() []byte { return v.data }

// offset returns the byte offset of the sample at (x,y,z), or an error if
// any axis index is outside the shape.
func (v *VoxelBuffer) offset(x, y, z int) (int, error) {
	if x < 0 || x >= v.size[0] ||
		y < 0 || y >= v.size[1] ||
		z < 0 || z >= v.size[2] {
		return 0, fmt.Errorf("(%d,%d,%d) in %v: %w", x, y, z, v.size, ErrOutOfBounds)
	}
	return ((x*v.size[1]+y)*v.size[2] + z) * v.precision, nil
}

// Sample returns the raw sample value at (x,y,z) as an unsigned
// little-endian integer of the buffer's width.
func (v *VoxelBuffer) Sample(x, y, z int) (uint64, error) {
	off, err := v.offset(x, y, z)
	if err != nil {
		return 0, err
	}
	b := v.data[off : off+v.precision]
	switch v.precision {
	case 1:
		return uint64(b[0]), nil
	case 2:
		return uint64(binary.LittleEndian.Uint16(b)), nil
	case 4:
		return uint64(binary.LittleEndian.Uint32(b)), nil
	case 8:
		return binary.LittleEndian.Uint64(b), nil
	}
	return 0, fmt.Errorf("%d bytes: %w", v.precision, ErrBadPrecision)
}

// SetSample stores a raw sample value at (x,y,z). The value is truncated to
// the buffer's sample width.
func (v *VoxelBuffer) SetSample(x, y, z int, value uint64) error {
	off, err := v.offset(x, y, z)
	if err != nil {
		return err
	}
	b := v.data[off : off+v.precision]
	switch v.precision {
	case 1:
		b[0] = byte(value)
	case 2:
		binary.LittleEndian.PutUint16(b, uint16(value))
	case 4:
		binary.LittleEndian.PutUint32(b, uint32(value))
	case 8:
		binary.LittleEndian.PutUint64(b, value)
	default:
		return fmt.Errorf("%d bytes: %w", v.precision, ErrBadPrecision)
	}
	return nil
}
