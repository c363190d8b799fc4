/*
Package pointcloud holds labeled cell coordinates with optional per-point colors and
reads and writes them as PLY files, plain point lists, and binary glTF.
*/
package pointcloud

import (
	"errors"
	"fmt"

	"github.com/janelia-flyem/cellvox/vox"
)

// ErrFormat is wrapped by all parse errors for point cloud files.
var ErrFormat = errors.New("malformed point cloud")

// Cloud is a set of physical coordinates, optionally colored.  When Colors is non-nil
// it has one entry per point.
type Cloud struct {
	Points []vox.Vector3d
	Colors []vox.Color
}

func (c *Cloud) Len() int {
	return len(c.Points)
}

func (c *Cloud) HasColors() bool {
	return c.Colors != nil
}

// Validate checks that colors, if present, pair up with points.
func (c *Cloud) Validate() error {
	if c.Colors != nil && len(c.Colors) != len(c.Points) {
		return fmt.Errorf("cloud has %d points but %d colors", len(c.Points), len(c.Colors))
	}
	return nil
}

func (c *Cloud) String() string {
	return fmt.Sprintf("point cloud with %d points (colored %t)", len(c.Points), c.HasColors())
}

// Sparse returns every step-th point starting with the first.
func (c *Cloud) Sparse(step int) (*Cloud, error) {
	if step < 1 {
		return nil, fmt.Errorf("sparse step must be at least 1, got %d", step)
	}
	n := (len(c.Points) + step - 1) / step
	out := &Cloud{Points: make([]vox.Vector3d, 0, n)}
	if c.Colors != nil {
		out.Colors = make([]vox.Color, 0, n)
	}
	for i := 0; i < len(c.Points); i += step {
		out.Points = append(out.Points, c.Points[i])
		if c.Colors != nil {
			out.Colors = append(out.Colors, c.Colors[i])
		}
	}
	return out, nil
}

// Scale returns the cloud with each coordinate multiplied by the matching factor.
func (c *Cloud) Scale(factors vox.Vector3d) *Cloud {
	out := &Cloud{Points: make([]vox.Vector3d, len(c.Points)), Colors: c.Colors}
	for i, p := range c.Points {
		out.Points[i] = p.Mult(factors)
	}
	return out
}

// FilterBelow keeps the points whose coordinate on axis is strictly less than cut.
func (c *Cloud) FilterBelow(axis int, cut float64) (*Cloud, error) {
	if axis < 0 || axis > 2 {
		return nil, fmt.Errorf("bad axis %d for 3D points", axis)
	}
	out := &Cloud{}
	if c.Colors != nil {
		out.Colors = []vox.Color{}
	}
	for i, p := range c.Points {
		if p[axis] < cut {
			out.Points = append(out.Points, p)
			if c.Colors != nil {
				out.Colors = append(out.Colors, c.Colors[i])
			}
		}
	}
	return out, nil
}

// Concat joins clouds in order.  The result is colored only if every input is.
func Concat(clouds ...*Cloud) *Cloud {
	out := &Cloud{}
	colored := len(clouds) > 0
	for _, c := range clouds {
		out.Points = append(out.Points, c.Points...)
		colored = colored && c.HasColors()
	}
	if colored {
		out.Colors = make([]vox.Color, 0, len(out.Points))
		for _, c := range clouds {
			out.Colors = append(out.Colors, c.Colors...)
		}
	}
	return out
}
