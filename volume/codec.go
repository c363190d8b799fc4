package volume

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/blang/semver"

	"github.com/janelia-flyem/cellvox/vox"
)

const magic = "CVOX"

// FormatVersion is written into every encoded volume.  Readers accept any encoding
// with the same major version.
var FormatVersion = semver.MustParse("1.0.0")

// MarshalBinary encodes the volume as a magic string, a length-prefixed format version,
// four little-endian uint32 extents, and then the raw voxel bytes.
func (v *Volume) MarshalBinary() ([]byte, error) {
	ver := FormatVersion.String()
	var buf bytes.Buffer
	buf.Grow(len(magic) + 1 + len(ver) + 16 + len(v.Data))
	buf.WriteString(magic)
	buf.WriteByte(uint8(len(ver)))
	buf.WriteString(ver)
	for _, n := range v.Shape {
		if err := binary.Write(&buf, binary.LittleEndian, uint32(n)); err != nil {
			return nil, err
		}
	}
	buf.Write(v.Data)
	return buf.Bytes(), nil
}

// UnmarshalBinary decodes data produced by MarshalBinary.
func (v *Volume) UnmarshalBinary(data []byte) error {
	if len(data) < len(magic)+1 || string(data[:len(magic)]) != magic {
		return fmt.Errorf("not an encoded volume")
	}
	buf := bytes.NewBuffer(data[len(magic):])
	n, _ := buf.ReadByte()
	if buf.Len() < int(n) {
		return fmt.Errorf("truncated volume header")
	}
	ver, err := semver.Make(string(buf.Next(int(n))))
	if err != nil {
		return fmt.Errorf("bad volume format version: %v", err)
	}
	if ver.Major != FormatVersion.Major {
		return fmt.Errorf("volume format version %s is incompatible with %s", ver, FormatVersion)
	}
	var extents [4]uint32
	if err := binary.Read(buf, binary.LittleEndian, &extents); err != nil {
		return fmt.Errorf("truncated volume header: %v", err)
	}
	var shape Shape
	for i, e := range extents {
		shape[i] = int(e)
	}
	vol, err := FromData(shape, buf.Bytes())
	if err != nil {
		return err
	}
	*v = *vol
	return nil
}

// Serialize encodes the volume and applies the given compression and checksum.
func (v *Volume) Serialize(compress vox.Compression, checksum vox.Checksum) ([]byte, error) {
	data, err := v.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return vox.SerializeData(data, compress, checksum)
}

// Deserialize reverses Serialize.
func Deserialize(s []byte) (*Volume, error) {
	data, _, err := vox.DeserializeData(s, true)
	if err != nil {
		return nil, err
	}
	v := new(Volume)
	if err := v.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return v, nil
}

// WriteFile serializes the volume to a file.
func WriteFile(path string, v *Volume, compress vox.Compression) error {
	s, err := v.Serialize(compress, vox.XXHash)
	if err != nil {
		return err
	}
	return os.WriteFile(path, s, 0644)
}

// ReadFile loads a volume written by WriteFile or any other serialized encoding.
func ReadFile(path string) (*Volume, error) {
	s, err := vox.DataFromFile(path)
	if err != nil {
		return nil, err
	}
	v, err := Deserialize(s)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", path, err)
	}
	return v, nil
}
