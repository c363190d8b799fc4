package vox

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Point3d is an integer voxel index.
type Point3d [3]int32

func (p Point3d) String() string {
	return fmt.Sprintf("(%d,%d,%d)", p[0], p[1], p[2])
}

// Vector3d is a 3D vector of 64-bit floats, used for physical coordinates.
type Vector3d [3]float64

// StringToVector3d parses a string of format "%f<sep>%f<sep>%f".
func StringToVector3d(str, separator string) (Vector3d, error) {
	elems := strings.Split(str, separator)
	if len(elems) != 3 {
		return Vector3d{}, fmt.Errorf("can't convert string %q (length %d) to Vector3d", str, len(elems))
	}
	var v Vector3d
	for i, elem := range elems {
		f, err := strconv.ParseFloat(strings.TrimSpace(elem), 64)
		if err != nil {
			return Vector3d{}, err
		}
		v[i] = f
	}
	return v, nil
}

// Distance returns the distance between two points a and b.
func (v Vector3d) Distance(x Vector3d) float64 {
	return math.Sqrt(v.DistanceSquared(x))
}

// DistanceSquared avoids the square root for neighborhood comparisons.
func (v Vector3d) DistanceSquared(x Vector3d) float64 {
	dx := x[0] - v[0]
	dy := x[1] - v[1]
	dz := x[2] - v[2]
	return dx*dx + dy*dy + dz*dz
}

func (v Vector3d) Add(x Vector3d) Vector3d {
	return Vector3d{v[0] + x[0], v[1] + x[1], v[2] + x[2]}
}

func (v Vector3d) Subtract(x Vector3d) Vector3d {
	return Vector3d{v[0] - x[0], v[1] - x[1], v[2] - x[2]}
}

// Mult multiplies each component by the matching component of x.
func (v Vector3d) Mult(x Vector3d) Vector3d {
	return Vector3d{v[0] * x[0], v[1] * x[1], v[2] * x[2]}
}

func (v Vector3d) String() string {
	return fmt.Sprintf("(%f,%f,%f)", v[0], v[1], v[2])
}

// Scale holds per-axis factors converting physical units into voxel units.
type Scale [3]float64

// ScaleFromResolution returns the scale for a voxel size given in physical units,
// e.g. 25x25x50 um voxels give (0.04, 0.04, 0.02).
func ScaleFromResolution(res Vector3d) (Scale, error) {
	var s Scale
	for i, r := range res {
		if !(r > 0) {
			return Scale{}, fmt.Errorf("resolution must be positive on every axis, got %s", res)
		}
		s[i] = 1 / r
	}
	return s, nil
}

// Validate returns an error unless all factors are finite and positive.
func (s Scale) Validate() error {
	for i, f := range s {
		if !(f > 0) || math.IsInf(f, 1) {
			return fmt.Errorf("scale factor %d must be finite and positive, got %g", i, f)
		}
	}
	return nil
}

// Voxel multiplies v by the scale and truncates each result toward zero.
// ok is false if any scaled coordinate is NaN or does not fit in an int32.
func (s Scale) Voxel(v Vector3d) (p Point3d, ok bool) {
	for i := range v {
		f := math.Trunc(v[i] * s[i])
		if math.IsNaN(f) || f < math.MinInt32 || f > math.MaxInt32 {
			return Point3d{}, false
		}
		p[i] = int32(f)
	}
	return p, true
}

// Color is an RGB triple with components in [0,1].
type Color [3]float64

// IsZero returns true if every component is exactly zero.
func (c Color) IsZero() bool {
	return c[0] == 0 && c[1] == 0 && c[2] == 0
}

// Bytes converts the color to 8-bit channels by multiplying by 255 and truncating.
// Components outside [0,1] are clamped.
func (c Color) Bytes() [3]uint8 {
	var b [3]uint8
	for i, f := range c {
		b[i] = Unit8(f)
	}
	return b
}

// Unit8 maps a value in [0,1] to [0,255] by truncation, clamping out-of-range input.
func Unit8(f float64) uint8 {
	switch {
	case math.IsNaN(f) || f <= 0:
		return 0
	case f >= 1:
		return 255
	default:
		return uint8(f * 255)
	}
}
