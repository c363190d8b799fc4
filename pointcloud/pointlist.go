package pointcloud

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/janelia-flyem/cellvox/vox"
)

// ReadPointList reads uncolored points, one per line, with coordinates separated by
// commas, semicolons or whitespace.  Blank lines and lines starting with '#' are
// skipped, as is a first line that does not parse as numbers (a column header).
func ReadPointList(r io.Reader) (*Cloud, error) {
	sep := func(r rune) bool {
		return r == ',' || r == ';' || unicode.IsSpace(r)
	}
	c := &Cloud{}
	s := bufio.NewScanner(r)
	var lineNum int
	for s.Scan() {
		lineNum++
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.FieldsFunc(line, sep)
		if len(fields) < 3 {
			return nil, fmt.Errorf("%w: line %d has %d values, need 3", ErrFormat, lineNum, len(fields))
		}
		var p vox.Vector3d
		var err error
		for i := 0; i < 3 && err == nil; i++ {
			p[i], err = strconv.ParseFloat(fields[i], 64)
		}
		if err != nil {
			if len(c.Points) == 0 && lineNum == 1 {
				continue
			}
			return nil, fmt.Errorf("%w: line %d: %v", ErrFormat, lineNum, err)
		}
		c.Points = append(c.Points, p)
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return c, nil
}

// WritePointList writes x,y,z rows with a header line, plus r,g,b columns in [0,1]
// if the cloud is colored.
func WritePointList(w io.Writer, c *Cloud) error {
	if err := c.Validate(); err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	if c.HasColors() {
		bw.WriteString("x,y,z,r,g,b\n")
	} else {
		bw.WriteString("x,y,z\n")
	}
	var row []byte
	for i, p := range c.Points {
		row = row[:0]
		vals := p[:]
		if c.HasColors() {
			vals = append(vals[:3:3], c.Colors[i][:]...)
		}
		for j, v := range vals {
			if j > 0 {
				row = append(row, ',')
			}
			row = strconv.AppendFloat(row, v, 'g', -1, 64)
		}
		row = append(row, '\n')
		if _, err := bw.Write(row); err != nil {
			return err
		}
	}
	return bw.Flush()
}
