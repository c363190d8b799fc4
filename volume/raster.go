package volume

import (
	"fmt"

	"github.com/janelia-flyem/cellvox/vox"
)

// RasterConfig holds everything Rasterize needs besides the points themselves.
type RasterConfig struct {
	// Scale converts each point coordinate from physical to voxel units.  Scale[j]
	// applies to point coordinate j regardless of AxisOrder.
	Scale vox.Scale

	// Shape of the output volume.  The channel extent must be 3 for RGB colors.
	Shape Shape

	// AxisOrder[i] names the point coordinate that indexes volume axis i.  The zero
	// value is the identity order.  {2, 1, 0} stores z along the first volume axis.
	AxisOrder [3]int

	// Step rasterizes only every Step-th point when greater than 1.
	Step int

	// SkipZeroColor drops points whose color is exactly black before bounds checks.
	SkipZeroColor bool
}

func (c RasterConfig) axisOrder() ([3]int, error) {
	if c.AxisOrder == ([3]int{}) {
		return [3]int{0, 1, 2}, nil
	}
	var seen [3]bool
	for _, a := range c.AxisOrder {
		if a < 0 || a > 2 || seen[a] {
			return [3]int{}, fmt.Errorf("axis order %v is not a permutation of 0, 1, 2", c.AxisOrder)
		}
		seen[a] = true
	}
	return c.AxisOrder, nil
}

// Validate checks the configuration without rasterizing anything.
func (c RasterConfig) Validate() error {
	if err := c.Scale.Validate(); err != nil {
		return err
	}
	if err := c.Shape.Validate(); err != nil {
		return err
	}
	if c.Shape[3] != 3 {
		return fmt.Errorf("rasterizing RGB colors requires 3 channels, shape is %s", c.Shape)
	}
	if c.Step < 0 {
		return fmt.Errorf("step must be non-negative, got %d", c.Step)
	}
	_, err := c.axisOrder()
	return err
}

// Rasterize writes each point's color, scaled to 0-255, into the voxel its scaled and
// truncated coordinates fall in.  Points outside the volume are skipped silently and
// the last point written to a voxel wins.
func Rasterize(points []vox.Vector3d, colors []vox.Color, cfg RasterConfig) (*Volume, error) {
	if len(points) != len(colors) {
		return nil, fmt.Errorf("%w: %d points, %d colors", ErrLengthMismatch, len(points), len(colors))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	order, _ := cfg.axisOrder()
	step := cfg.Step
	if step < 1 {
		step = 1
	}

	v, err := New(cfg.Shape)
	if err != nil {
		return nil, err
	}
	var written, outside int
	for i := 0; i < len(points); i += step {
		if cfg.SkipZeroColor && colors[i].IsZero() {
			continue
		}
		p, ok := cfg.Scale.Voxel(points[i])
		if !ok {
			outside++
			continue
		}
		idx := [3]int{int(p[order[0]]), int(p[order[1]]), int(p[order[2]])}
		if !v.inBounds(idx) {
			outside++
			continue
		}
		rgb := colors[i].Bytes()
		copy(v.Voxel(idx[0], idx[1], idx[2]), rgb[:])
		written++
	}
	vox.Debugf("Rasterized %d of %d points into %s, %d outside bounds\n", written, len(points), cfg.Shape, outside)
	return v, nil
}

func (v *Volume) inBounds(idx [3]int) bool {
	for axis, i := range idx {
		if i < 0 || i >= v.Shape[axis] {
			return false
		}
	}
	return true
}
