package volume

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"io"
	"os"

	"golang.org/x/image/tiff"
)

// tiffIFDs returns the offsets of every image file directory in a classic TIFF, in
// file order.
func tiffIFDs(data []byte) ([]uint32, error) {
	if len(data) < 8 {
		return nil, errors.New("TIFF shorter than its header")
	}
	var order binary.ByteOrder
	switch string(data[:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return nil, errors.New("missing TIFF byte order mark")
	}
	switch magic := order.Uint16(data[2:4]); magic {
	case 42:
	case 43:
		return nil, errors.New("BigTIFF is not supported")
	default:
		return nil, fmt.Errorf("bad TIFF magic number %d", magic)
	}

	var offsets []uint32
	seen := map[uint32]bool{}
	for off := order.Uint32(data[4:8]); off != 0; {
		if seen[off] {
			return nil, fmt.Errorf("TIFF directory chain loops back to offset %d", off)
		}
		seen[off] = true
		if uint64(off)+2 > uint64(len(data)) {
			return nil, fmt.Errorf("TIFF directory offset %d past end of file", off)
		}
		entries := uint64(order.Uint16(data[off:]))
		next := uint64(off) + 2 + 12*entries
		if next+4 > uint64(len(data)) {
			return nil, fmt.Errorf("TIFF directory at %d runs past end of file", off)
		}
		offsets = append(offsets, off)
		off = order.Uint32(data[next:])
	}
	if len(offsets) == 0 {
		return nil, errors.New("TIFF has no images")
	}
	return offsets, nil
}

// tiffPage reads a TIFF with its header pointing at one chosen directory.
type tiffPage struct {
	data   []byte
	header [8]byte
}

func newTIFFPage(data []byte, ifd uint32) *tiffPage {
	p := &tiffPage{data: data}
	copy(p.header[:], data[:8])
	if data[0] == 'I' {
		binary.LittleEndian.PutUint32(p.header[4:], ifd)
	} else {
		binary.BigEndian.PutUint32(p.header[4:], ifd)
	}
	return p
}

func (p *tiffPage) ReadAt(b []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errors.New("negative TIFF offset")
	}
	if off >= int64(len(p.data)) {
		return 0, io.EOF
	}
	n := copy(b, p.data[off:])
	if off < int64(len(p.header)) {
		copy(b, p.header[off:])
	}
	if n < len(b) {
		return n, io.EOF
	}
	return n, nil
}

// DecodeTIFFPages decodes every image of a possibly multi-page TIFF.
func DecodeTIFFPages(data []byte) ([]image.Image, error) {
	ifds, err := tiffIFDs(data)
	if err != nil {
		return nil, err
	}
	if len(ifds) == 1 {
		img, err := tiff.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		return []image.Image{img}, nil
	}
	pages := make([]image.Image, len(ifds))
	for i, ifd := range ifds {
		r := io.NewSectionReader(newTIFFPage(data, ifd), 0, int64(len(data)))
		if pages[i], err = tiff.Decode(r); err != nil {
			return nil, fmt.Errorf("page %d: %v", i, err)
		}
	}
	return pages, nil
}

// ReadTIFFPages decodes every image of a TIFF file.
func ReadTIFFPages(path string) ([]image.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	pages, err := DecodeTIFFPages(data)
	if err != nil {
		return nil, fmt.Errorf("decoding TIFF %q: %v", path, err)
	}
	return pages, nil
}
