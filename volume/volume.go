package volume

import (
	"bytes"
	"errors"
	"fmt"
)

var (
	// ErrLengthMismatch is returned when point and color counts differ.
	ErrLengthMismatch = errors.New("number of points and colors differ")

	// ErrShapeMismatch is returned when two volumes cannot be combined element-wise.
	ErrShapeMismatch = errors.New("volume shapes are incompatible")
)

// Shape gives the extent of each axis in (X, Y, Z, C) order.
type Shape [4]int

// Voxels returns the number of spatial voxels, ignoring channels.
func (s Shape) Voxels() int {
	return s[0] * s[1] * s[2]
}

// Elements returns the total number of bytes needed to hold a volume of this shape.
func (s Shape) Elements() int {
	return s[0] * s[1] * s[2] * s[3]
}

// Spatial returns the shape with the channel axis dropped.
func (s Shape) Spatial() [3]int {
	return [3]int{s[0], s[1], s[2]}
}

func (s Shape) Validate() error {
	for axis, n := range s {
		if n <= 0 {
			return fmt.Errorf("shape %s has non-positive extent on axis %d", s, axis)
		}
	}
	return nil
}

func (s Shape) String() string {
	return fmt.Sprintf("%dx%dx%dx%d", s[0], s[1], s[2], s[3])
}

func (s Shape) strides() [4]int {
	return [4]int{s[1] * s[2] * s[3], s[2] * s[3], s[3], 1}
}

// Volume is a dense 8-bit voxel array.
type Volume struct {
	Shape Shape
	Data  []uint8
}

// New returns a zero-filled volume.
func New(shape Shape) (*Volume, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	return &Volume{Shape: shape, Data: make([]uint8, shape.Elements())}, nil
}

// FromData wraps data without copying, checking that its length matches the shape.
func FromData(shape Shape, data []uint8) (*Volume, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if len(data) != shape.Elements() {
		return nil, fmt.Errorf("shape %s needs %d bytes, got %d", shape, shape.Elements(), len(data))
	}
	return &Volume{Shape: shape, Data: data}, nil
}

// Index returns the offset into Data of the given element.
func (v *Volume) Index(x, y, z, c int) int {
	return ((x*v.Shape[1]+y)*v.Shape[2]+z)*v.Shape[3] + c
}

func (v *Volume) At(x, y, z, c int) uint8 {
	return v.Data[v.Index(x, y, z, c)]
}

func (v *Volume) Set(x, y, z, c int, val uint8) {
	v.Data[v.Index(x, y, z, c)] = val
}

// Voxel returns the channel values at a spatial position.
func (v *Volume) Voxel(x, y, z int) []uint8 {
	i := v.Index(x, y, z, 0)
	return v.Data[i : i+v.Shape[3]]
}

func (v *Volume) Clone() *Volume {
	data := make([]uint8, len(v.Data))
	copy(data, v.Data)
	return &Volume{Shape: v.Shape, Data: data}
}

// Equal returns true if both volumes have the same shape and contents.
func (v *Volume) Equal(o *Volume) bool {
	if v == nil || o == nil {
		return v == o
	}
	return v.Shape == o.Shape && bytes.Equal(v.Data, o.Data)
}

// NonZeroVoxels counts spatial positions with at least one non-zero channel.
func (v *Volume) NonZeroVoxels() int {
	var n int
	nc := v.Shape[3]
	for i := 0; i < len(v.Data); i += nc {
		for _, b := range v.Data[i : i+nc] {
			if b != 0 {
				n++
				break
			}
		}
	}
	return n
}

func (v *Volume) String() string {
	return fmt.Sprintf("volume %s", v.Shape)
}

// compatible checks that o can be combined element-wise with v, either channel for
// channel or with a single channel broadcast across all of v's channels.
func compatible(v, o *Volume) error {
	if v.Shape.Spatial() != o.Shape.Spatial() {
		return fmt.Errorf("%w: %s vs %s", ErrShapeMismatch, v.Shape, o.Shape)
	}
	if o.Shape[3] != v.Shape[3] && o.Shape[3] != 1 {
		return fmt.Errorf("%w: %d channels cannot broadcast to %d", ErrShapeMismatch, o.Shape[3], v.Shape[3])
	}
	return nil
}
