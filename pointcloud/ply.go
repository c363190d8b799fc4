package pointcloud

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/janelia-flyem/cellvox/vox"
)

// PLYFormat is the data encoding declared in a PLY header.
type PLYFormat uint8

const (
	BinaryLittleEndian PLYFormat = iota
	BinaryBigEndian
	ASCII
)

func (f PLYFormat) String() string {
	switch f {
	case BinaryLittleEndian:
		return "binary_little_endian"
	case BinaryBigEndian:
		return "binary_big_endian"
	case ASCII:
		return "ascii"
	default:
		return fmt.Sprintf("PLYFormat(%d)", uint8(f))
	}
}

// ParsePLYFormat accepts the header spelling of a format, or "binary" for little endian.
func ParsePLYFormat(s string) (PLYFormat, error) {
	switch s {
	case "", "binary", "binary_little_endian":
		return BinaryLittleEndian, nil
	case "binary_big_endian":
		return BinaryBigEndian, nil
	case "ascii":
		return ASCII, nil
	}
	return ASCII, fmt.Errorf("unknown PLY format %q", s)
}

type scalarType struct {
	name  string
	size  int
	float bool
	sign  bool
}

var scalarTypes = map[string]scalarType{
	"char":    {"char", 1, false, true},
	"int8":    {"char", 1, false, true},
	"uchar":   {"uchar", 1, false, false},
	"uint8":   {"uchar", 1, false, false},
	"short":   {"short", 2, false, true},
	"int16":   {"short", 2, false, true},
	"ushort":  {"ushort", 2, false, false},
	"uint16":  {"ushort", 2, false, false},
	"int":     {"int", 4, false, true},
	"int32":   {"int", 4, false, true},
	"uint":    {"uint", 4, false, false},
	"uint32":  {"uint", 4, false, false},
	"float":   {"float", 4, true, true},
	"float32": {"float", 4, true, true},
	"double":  {"double", 8, true, true},
	"float64": {"double", 8, true, true},
}

// colorScale is the value that maps to full intensity for integer color channels.
func (t scalarType) colorScale() float64 {
	if t.float {
		return 1
	}
	return float64(uint64(1)<<(8*uint(t.size)) - 1)
}

type plyProperty struct {
	name     string
	typ      scalarType
	list     bool
	countTyp scalarType
}

type plyElement struct {
	name  string
	count int
	props []plyProperty
}

type plyHeader struct {
	format   PLYFormat
	elements []plyElement
}

func formatErr(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrFormat, fmt.Sprintf(format, args...))
}

func readHeader(r *bufio.Reader) (*plyHeader, error) {
	readLine := func() (string, error) {
		line, err := r.ReadString('\n')
		if err != nil && !(err == io.EOF && line != "") {
			return "", formatErr("unterminated header: %v", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}
	line, err := readLine()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(line) != "ply" {
		return nil, formatErr("missing 'ply' magic")
	}
	h := &plyHeader{format: 255}
	for {
		if line, err = readLine(); err != nil {
			return nil, err
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "comment", "obj_info":
		case "format":
			if len(fields) != 3 {
				return nil, formatErr("bad format line %q", line)
			}
			if h.format, err = ParsePLYFormat(fields[1]); err != nil || fields[1] == "binary" {
				return nil, formatErr("unsupported format %q", fields[1])
			}
		case "element":
			if len(fields) != 3 {
				return nil, formatErr("bad element line %q", line)
			}
			n, err := strconv.Atoi(fields[2])
			if err != nil || n < 0 {
				return nil, formatErr("bad element count in %q", line)
			}
			h.elements = append(h.elements, plyElement{name: fields[1], count: n})
		case "property":
			if len(h.elements) == 0 {
				return nil, formatErr("property before any element")
			}
			prop, err := parseProperty(fields)
			if err != nil {
				return nil, err
			}
			el := &h.elements[len(h.elements)-1]
			el.props = append(el.props, prop)
		case "end_header":
			if h.format == 255 {
				return nil, formatErr("header has no format line")
			}
			return h, nil
		default:
			return nil, formatErr("unexpected header line %q", line)
		}
	}
}

func parseProperty(fields []string) (plyProperty, error) {
	if len(fields) == 5 && fields[1] == "list" {
		ct, ok1 := scalarTypes[fields[2]]
		vt, ok2 := scalarTypes[fields[3]]
		if !ok1 || !ok2 || ct.float {
			return plyProperty{}, formatErr("bad list property %q", strings.Join(fields, " "))
		}
		return plyProperty{name: fields[4], typ: vt, list: true, countTyp: ct}, nil
	}
	if len(fields) != 3 {
		return plyProperty{}, formatErr("bad property %q", strings.Join(fields, " "))
	}
	t, ok := scalarTypes[fields[1]]
	if !ok {
		return plyProperty{}, formatErr("unknown property type %q", fields[1])
	}
	return plyProperty{name: fields[2], typ: t}, nil
}

// valueReader pulls successive scalar values out of the body of a PLY file.
type valueReader interface {
	next(t scalarType) (float64, error)
}

type asciiReader struct {
	s *bufio.Scanner
}

func (a asciiReader) next(t scalarType) (float64, error) {
	if !a.s.Scan() {
		if err := a.s.Err(); err != nil {
			return 0, err
		}
		return 0, formatErr("unexpected end of ascii data")
	}
	v, err := strconv.ParseFloat(a.s.Text(), 64)
	if err != nil {
		return 0, formatErr("bad value %q", a.s.Text())
	}
	return v, nil
}

type binaryReader struct {
	r     io.Reader
	order binary.ByteOrder
	buf   [8]byte
}

func (b *binaryReader) next(t scalarType) (float64, error) {
	buf := b.buf[:t.size]
	if _, err := io.ReadFull(b.r, buf); err != nil {
		return 0, formatErr("unexpected end of binary data: %v", err)
	}
	switch t.name {
	case "char":
		return float64(int8(buf[0])), nil
	case "uchar":
		return float64(buf[0]), nil
	case "short":
		return float64(int16(b.order.Uint16(buf))), nil
	case "ushort":
		return float64(b.order.Uint16(buf)), nil
	case "int":
		return float64(int32(b.order.Uint32(buf))), nil
	case "uint":
		return float64(b.order.Uint32(buf)), nil
	case "float":
		return float64(math.Float32frombits(b.order.Uint32(buf))), nil
	default:
		return math.Float64frombits(b.order.Uint64(buf)), nil
	}
}

// readElement reads one instance of el, returning scalar property values in order.
// List properties are consumed and reported as NaN.
func readElement(vr valueReader, el *plyElement, vals []float64) error {
	for i, p := range el.props {
		if !p.list {
			v, err := vr.next(p.typ)
			if err != nil {
				return err
			}
			vals[i] = v
			continue
		}
		n, err := vr.next(p.countTyp)
		if err != nil {
			return err
		}
		if n < 0 {
			return formatErr("negative list length in %s.%s", el.name, p.name)
		}
		for j := 0; j < int(n); j++ {
			if _, err := vr.next(p.typ); err != nil {
				return err
			}
		}
		vals[i] = math.NaN()
	}
	return nil
}

// ReadPLY reads the vertex element of a PLY file.  Vertices need x, y and z
// properties; red, green and blue properties, if all present, become colors scaled
// to [0,1].  Other properties and elements are ignored.
func ReadPLY(r io.Reader) (*Cloud, error) {
	br := bufio.NewReader(r)
	h, err := readHeader(br)
	if err != nil {
		return nil, err
	}
	var vr valueReader
	switch h.format {
	case ASCII:
		s := bufio.NewScanner(br)
		s.Split(bufio.ScanWords)
		vr = asciiReader{s}
	case BinaryBigEndian:
		vr = &binaryReader{r: br, order: binary.BigEndian}
	default:
		vr = &binaryReader{r: br, order: binary.LittleEndian}
	}

	for ei := range h.elements {
		el := &h.elements[ei]
		vals := make([]float64, len(el.props))
		if el.name != "vertex" {
			for n := 0; n < el.count; n++ {
				if err := readElement(vr, el, vals); err != nil {
					return nil, err
				}
			}
			continue
		}
		return readVertices(vr, el, vals)
	}
	return nil, formatErr("no vertex element")
}

// maxPrealloc bounds the vertex slices allocated before any vertex is read.
const maxPrealloc = 1 << 20

func readVertices(vr valueReader, el *plyElement, vals []float64) (*Cloud, error) {
	idx := map[string]int{}
	for i, p := range el.props {
		if !p.list {
			idx[p.name] = i
		}
	}
	xi, okx := idx["x"]
	yi, oky := idx["y"]
	zi, okz := idx["z"]
	if !okx || !oky || !okz {
		return nil, formatErr("vertex element lacks x, y or z")
	}
	ri, okr := idx["red"]
	gi, okg := idx["green"]
	bi, okb := idx["blue"]
	colored := okr && okg && okb

	// Headers can lie about the count, so grow as vertices actually arrive.
	capacity := min(el.count, maxPrealloc)
	c := &Cloud{Points: make([]vox.Vector3d, 0, capacity)}
	var scale [3]float64
	if colored {
		c.Colors = make([]vox.Color, 0, capacity)
		for i, ci := range []int{ri, gi, bi} {
			scale[i] = el.props[ci].typ.colorScale()
		}
	}
	for n := 0; n < el.count; n++ {
		if err := readElement(vr, el, vals); err != nil {
			return nil, fmt.Errorf("vertex %d: %w", n, err)
		}
		c.Points = append(c.Points, vox.Vector3d{vals[xi], vals[yi], vals[zi]})
		if colored {
			c.Colors = append(c.Colors, vox.Color{vals[ri] / scale[0], vals[gi] / scale[1], vals[bi] / scale[2]})
		}
	}
	return c, nil
}

// colorByte rounds a [0,1] color channel to 8 bits for storage.
func colorByte(f float64) uint8 {
	switch {
	case math.IsNaN(f) || f <= 0:
		return 0
	case f >= 1:
		return 255
	default:
		return uint8(math.Round(f * 255))
	}
}

// WritePLY writes the cloud as double-precision vertices with uchar colors.
func WritePLY(w io.Writer, c *Cloud, format PLYFormat) error {
	if err := c.Validate(); err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "ply\nformat %s 1.0\ncomment written by cellvox\n", format)
	fmt.Fprintf(bw, "element vertex %d\nproperty double x\nproperty double y\nproperty double z\n", c.Len())
	if c.HasColors() {
		fmt.Fprintf(bw, "property uchar red\nproperty uchar green\nproperty uchar blue\n")
	}
	fmt.Fprintf(bw, "end_header\n")

	var order binary.ByteOrder
	switch format {
	case ASCII:
	case BinaryLittleEndian:
		order = binary.LittleEndian
	case BinaryBigEndian:
		order = binary.BigEndian
	default:
		return fmt.Errorf("cannot write PLY format %s", format)
	}

	row := make([]byte, 0, 27)
	for i, p := range c.Points {
		if order == nil {
			row = row[:0]
			for j, v := range p {
				if j > 0 {
					row = append(row, ' ')
				}
				row = strconv.AppendFloat(row, v, 'g', -1, 64)
			}
			if c.HasColors() {
				for _, ch := range c.Colors[i] {
					row = append(row, ' ')
					row = strconv.AppendUint(row, uint64(colorByte(ch)), 10)
				}
			}
			row = append(row, '\n')
		} else {
			row = row[:24]
			for j, v := range p {
				order.PutUint64(row[8*j:], math.Float64bits(v))
			}
			if c.HasColors() {
				col := c.Colors[i]
				row = append(row, colorByte(col[0]), colorByte(col[1]), colorByte(col[2]))
			}
		}
		if _, err := bw.Write(row); err != nil {
			return err
		}
	}
	return bw.Flush()
}
