package gmh

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"

	"github.com/pkg/errors"

	"github.com/gmh-format/gmh/model"
	"github.com/gmh-format/gmh/util"
)

// Container member names. See the package documentation for the framing.
const (
	manifestMember = "manifest.json"
	voxelMember    = "voxels"
	maskPrefix     = "mask/"
)

// DefaultMaxVoxelBytes is the decode allocation ceiling used when a Codec
// does not set its own. A manifest declaring a larger voxel volume is
// rejected with ErrTooLarge before anything is allocated.
const DefaultMaxVoxelBytes int64 = 4 << 30 // 4 GiB

// slug length for stored masks, matching the historical format
const slugLength = 5

// Codec converts between the in-memory (Manifest, VoxelBuffer) pair and the
// persisted container framing. The zero value is ready to use.
type Codec struct {
	// MaxVoxelBytes caps the voxel buffer allocation a decoded manifest
	// may demand. Zero means DefaultMaxVoxelBytes.
	MaxVoxelBytes int64
}

// Encode writes m and v as a container to w. The voxel buffer shape must
// match the manifest's image geometry. The manifest document is validated
// against the schema before anything is written, so Encode never produces
// an unreadable container.
//
// Segments carrying a mask but no slug are assigned a fresh random slug,
// visible to the caller afterwards, so that a later Encode of the same
// manifest is stable. A slug on a segment without a mask is written out as
// null.
func (c Codec) Encode(w io.Writer, m *model.Manifest, v *model.VoxelBuffer) error {
	if v.Size() != m.Image.Size || v.PrecisionBytes() != m.Image.PrecisionBytes {
		return fmt.Errorf("%w: buffer %v/%d, image %v/%d",
			ErrShapeMismatch,
			v.Size(), v.PrecisionBytes(),
			m.Image.Size, m.Image.PrecisionBytes)
	}
	if err := assignSlugs(m); err != nil {
		return err
	}
	raw, err := json.Marshal(buildManifestDoc(m))
	if err != nil {
		return errors.Wrap(err, "encoding manifest")
	}
	// make sure the result will actually be readable
	if err := ValidateBytes(raw); err != nil {
		return err
	}

	zw := zip.NewWriter(w)
	out, err := makeStream(zw, manifestMember)
	if err == nil {
		_, err = out.Write(raw)
	}
	if err != nil {
		return err
	}
	out, err = makeStream(zw, voxelMember)
	if err == nil {
		_, err = out.Write(v.Bytes())
	}
	if err != nil {
		return err
	}
	for _, seg := range m.Segments() {
		if seg.Mask == nil {
			continue
		}
		out, err = makeStream(zw, maskPrefix+*seg.Slug)
		if err == nil {
			_, err = out.Write(seg.Mask)
		}
		if err != nil {
			return err
		}
	}
	return zw.Close()
}

// EncodeBytes is Encode into a fresh byte slice.
func (c Codec) EncodeBytes(m *model.Manifest, v *model.VoxelBuffer) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.Encode(&buf, m, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode reads a container from r. The manifest section is validated
// against the schema before anything in it is trusted, and the implied
// voxel allocation is checked against the codec's ceiling before it is
// made. Returns ErrTruncated if any payload section holds fewer bytes than
// the manifest declares.
func (c Codec) Decode(r io.ReaderAt, size int64) (*model.Manifest, *model.VoxelBuffer, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrBadContainer, err)
	}
	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[f.Name] = f
	}

	mf := files[manifestMember]
	if mf == nil {
		return nil, nil, fmt.Errorf("%w: no %s member", ErrBadContainer, manifestMember)
	}
	raw, err := readMember(mf)
	if err != nil {
		return nil, nil, err
	}
	if err := ValidateBytes(raw); err != nil {
		return nil, nil, err
	}
	doc, err := decodeManifestDoc(raw)
	if err != nil {
		return nil, nil, err
	}
	m, err := manifestFromDoc(doc)
	if err != nil {
		return nil, nil, err
	}

	expected, err := c.voxelByteLen(m.Image)
	if err != nil {
		return nil, nil, err
	}
	vf := files[voxelMember]
	if vf == nil {
		return nil, nil, fmt.Errorf("%w: no %s member, %d bytes declared",
			ErrTruncated, voxelMember, expected)
	}
	if got := int64(vf.UncompressedSize64); got != expected {
		if got < expected {
			return nil, nil, fmt.Errorf("%w: voxel section has %d bytes, manifest declares %d",
				ErrTruncated, got, expected)
		}
		return nil, nil, fmt.Errorf("%w: voxel section has %d bytes, manifest declares %d",
			ErrBadContainer, got, expected)
	}
	v, err := model.NewVoxelBuffer(m.Image.Size, m.Image.PrecisionBytes)
	if err != nil {
		return nil, nil, err
	}
	if err := readMemberInto(vf, v.Bytes()); err != nil {
		return nil, nil, err
	}

	for _, seg := range m.Segments() {
		if seg.Slug == nil {
			continue
		}
		if seg.BoundingBox == nil {
			return nil, nil, fmt.Errorf("%w: segment %q has a mask slug but no bounding box",
				ErrBadContainer, seg.Identifier)
		}
		name := maskPrefix + *seg.Slug
		f := files[name]
		if f == nil {
			return nil, nil, fmt.Errorf("%w: no %s member", ErrTruncated, name)
		}
		want := int64(seg.BoundingBox.Volume())
		if got := int64(f.UncompressedSize64); got != want {
			if got < want {
				return nil, nil, fmt.Errorf("%w: %s has %d bytes, bounding box covers %d voxels",
					ErrTruncated, name, got, want)
			}
			return nil, nil, fmt.Errorf("%w: %s has %d bytes, bounding box covers %d voxels",
				ErrBadContainer, name, got, want)
		}
		mask := make([]byte, want)
		if err := readMemberInto(f, mask); err != nil {
			return nil, nil, err
		}
		seg.Mask = mask
	}
	return m, v, nil
}

// DecodeBytes is Decode from a byte slice.
func (c Codec) DecodeBytes(b []byte) (*model.Manifest, *model.VoxelBuffer, error) {
	return c.Decode(bytes.NewReader(b), int64(len(b)))
}

// voxelByteLen returns the voxel section length the image geometry implies,
// guarding the multiplication against overflow and the result against the
// codec's allocation ceiling.
func (c Codec) voxelByteLen(img model.Image) (int64, error) {
	limit := c.MaxVoxelBytes
	if limit <= 0 {
		limit = DefaultMaxVoxelBytes
	}
	n := int64(1)
	for _, f := range []int{img.Size[0], img.Size[1], img.Size[2], img.PrecisionBytes} {
		if f == 0 {
			return 0, nil
		}
		if n > limit/int64(f) {
			return 0, fmt.Errorf("%w: %v at %d bytes per voxel, limit %d bytes",
				ErrTooLarge, img.Size, img.PrecisionBytes, limit)
		}
		n *= int64(f)
	}
	return n, nil
}

func makeStream(zw *zip.Writer, name string) (io.Writer, error) {
	header := zip.FileHeader{
		Name:   name,
		Method: zip.Store,
	}
	return zw.CreateHeader(&header)
}

func readMember(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", f.Name)
	}
	defer rc.Close()
	b, err := ioutil.ReadAll(rc)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", f.Name)
	}
	return b, nil
}

func readMemberInto(f *zip.File, dst []byte) error {
	rc, err := f.Open()
	if err != nil {
		return errors.Wrapf(err, "opening %s", f.Name)
	}
	defer rc.Close()
	_, err = io.ReadFull(rc, dst)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return fmt.Errorf("%w: %s ended early", ErrTruncated, f.Name)
	}
	return errors.Wrapf(err, "reading %s", f.Name)
}

// assignSlugs gives every mask-carrying segment a slug to store its mask
// under, leaving already-present slugs alone. Slugs must be unique within
// the manifest since they name container members. Slugs on mask-less
// segments are ignored; they are not serialized.
func assignSlugs(m *model.Manifest) error {
	used := make(map[string]bool)
	for _, seg := range m.Segments() {
		if seg.Mask == nil || seg.Slug == nil {
			continue
		}
		if used[*seg.Slug] {
			return errors.Wrapf(model.ErrDuplicateKey, "mask slug %q", *seg.Slug)
		}
		used[*seg.Slug] = true
	}
	for _, seg := range m.Segments() {
		if seg.Mask == nil || seg.Slug != nil {
			continue
		}
		for {
			slug := util.RandomString(slugLength, util.Lowercase)
			if !used[slug] {
				used[slug] = true
				seg.Slug = &slug
				break
			}
		}
	}
	return nil
}
