package volume

import (
	"fmt"
	"math"
)

// Span bounds one axis of a crop.  Start is inclusive and End exclusive.  An End of
// zero leaves the axis unbounded above, and an End past the extent is clamped.
type Span struct {
	Start int
	End   int
}

// Upto returns the span [0, n).
func Upto(n int) Span {
	return Span{End: n}
}

func (s Span) String() string {
	if s.End == 0 {
		return fmt.Sprintf("[%d:]", s.Start)
	}
	return fmt.Sprintf("[%d:%d]", s.Start, s.End)
}

// resolve clamps the span to an axis of extent n.
func (s Span) resolve(n int) (lo, hi int, err error) {
	if s.Start < 0 || s.End < 0 {
		return 0, 0, fmt.Errorf("negative crop bound %s", s)
	}
	lo, hi = s.Start, n
	if s.End != 0 && s.End < n {
		hi = s.End
	}
	if lo >= hi {
		return 0, 0, fmt.Errorf("crop %s leaves nothing of an axis with extent %d", s, n)
	}
	return lo, hi, nil
}

// Interpolation selects how Zoom samples between input voxels.
type Interpolation uint8

const (
	// Linear interpolates separably along each axis and rounds to the nearest integer.
	Linear Interpolation = iota

	// Nearest takes the closest input voxel.
	Nearest
)

func (i Interpolation) String() string {
	switch i {
	case Linear:
		return "linear"
	case Nearest:
		return "nearest"
	default:
		return fmt.Sprintf("Interpolation(%d)", uint8(i))
	}
}

// ParseInterpolation converts a configuration string into an Interpolation.
func ParseInterpolation(s string) (Interpolation, error) {
	switch s {
	case "", "linear":
		return Linear, nil
	case "nearest":
		return Nearest, nil
	}
	return Linear, fmt.Errorf("unknown interpolation %q", s)
}

// Crop returns the sub-volume selected by bounds, one span per axis.  Axes without
// a span, or with the zero Span, are kept whole.
func Crop(v *Volume, bounds []Span) (*Volume, error) {
	lo, hi, err := cropBounds(v.Shape, bounds)
	if err != nil {
		return nil, err
	}
	var shape Shape
	for axis := range shape {
		shape[axis] = hi[axis] - lo[axis]
	}
	if shape == v.Shape {
		return v.Clone(), nil
	}

	out := &Volume{Shape: shape, Data: make([]uint8, shape.Elements())}
	rowLen := shape[3]
	dst := 0
	for x := lo[0]; x < hi[0]; x++ {
		for y := lo[1]; y < hi[1]; y++ {
			for z := lo[2]; z < hi[2]; z++ {
				src := v.Index(x, y, z, lo[3])
				copy(out.Data[dst:dst+rowLen], v.Data[src:src+rowLen])
				dst += rowLen
			}
		}
	}
	return out, nil
}

func cropBounds(shape Shape, bounds []Span) (lo, hi [4]int, err error) {
	if len(bounds) > 4 {
		return lo, hi, fmt.Errorf("crop given %d spans for a 4D volume", len(bounds))
	}
	for axis := 0; axis < 4; axis++ {
		var s Span
		if axis < len(bounds) {
			s = bounds[axis]
		}
		if lo[axis], hi[axis], err = s.resolve(shape[axis]); err != nil {
			return lo, hi, fmt.Errorf("axis %d: %v", axis, err)
		}
	}
	return lo, hi, nil
}

// CropShape returns the shape Crop would produce from a volume of the given shape.
func CropShape(shape Shape, bounds []Span) (Shape, error) {
	lo, hi, err := cropBounds(shape, bounds)
	if err != nil {
		return Shape{}, err
	}
	var out Shape
	for axis := range out {
		out[axis] = hi[axis] - lo[axis]
	}
	return out, nil
}

// axisSampling precomputes, for each output index along one axis, the two input
// indices to blend and the weight of the upper one.
type axisSampling struct {
	lo, hi []int
	w      []float64
}

func newAxisSampling(in, out int, interp Interpolation) axisSampling {
	s := axisSampling{lo: make([]int, out), hi: make([]int, out), w: make([]float64, out)}
	for o := 0; o < out; o++ {
		// endpoints of input and output grids are aligned
		var x float64
		if out > 1 {
			x = float64(o*(in-1)) / float64(out-1)
		}
		if interp == Nearest {
			i := int(math.Floor(x + 0.5))
			if i > in-1 {
				i = in - 1
			}
			s.lo[o], s.hi[o] = i, i
			continue
		}
		i := int(math.Floor(x))
		if i >= in-1 {
			s.lo[o], s.hi[o] = in-1, in-1
			continue
		}
		s.lo[o], s.hi[o], s.w[o] = i, i+1, x-float64(i)
	}
	return s
}

// ZoomShape returns the output shape Zoom produces, rounding each scaled extent half
// to even.
func ZoomShape(shape Shape, factors []float64) (Shape, error) {
	if len(factors) != 3 && len(factors) != 4 {
		return Shape{}, fmt.Errorf("zoom needs 3 or 4 factors, got %d", len(factors))
	}
	out := shape
	for axis, f := range factors {
		if !(f > 0) || math.IsInf(f, 1) {
			return Shape{}, fmt.Errorf("zoom factor for axis %d must be finite and positive, got %g", axis, f)
		}
		n := int(math.RoundToEven(float64(shape[axis]) * f))
		if n < 1 {
			return Shape{}, fmt.Errorf("zoom factor %g reduces axis %d (extent %d) to nothing", f, axis, shape[axis])
		}
		out[axis] = n
	}
	return out, nil
}

// Zoom resamples v by the given per-axis factors.  Three factors leave the channel
// axis untouched.  Factors of 1 on every axis return an identical copy.
func Zoom(v *Volume, factors []float64, interp Interpolation) (*Volume, error) {
	if interp != Linear && interp != Nearest {
		return nil, fmt.Errorf("unknown interpolation %s", interp)
	}
	shape, err := ZoomShape(v.Shape, factors)
	if err != nil {
		return nil, err
	}
	if shape == v.Shape {
		return v.Clone(), nil
	}

	var samp [4]axisSampling
	for axis := 0; axis < 4; axis++ {
		samp[axis] = newAxisSampling(v.Shape[axis], shape[axis], interp)
	}
	stride := v.Shape.strides()
	out := &Volume{Shape: shape, Data: make([]uint8, shape.Elements())}

	var o [4]int
	dst := 0
	for o[0] = 0; o[0] < shape[0]; o[0]++ {
		for o[1] = 0; o[1] < shape[1]; o[1]++ {
			for o[2] = 0; o[2] < shape[2]; o[2]++ {
				for o[3] = 0; o[3] < shape[3]; o[3]++ {
					out.Data[dst] = sampleAt(v.Data, &samp, &o, &stride)
					dst++
				}
			}
		}
	}
	return out, nil
}

// sampleAt blends the up to 16 input corners surrounding one output position.
func sampleAt(data []uint8, samp *[4]axisSampling, o, stride *[4]int) uint8 {
	var sum float64
	for corner := 0; corner < 16; corner++ {
		wt := 1.0
		idx := 0
		for axis := 0; axis < 4; axis++ {
			s := &samp[axis]
			w := s.w[o[axis]]
			if corner>>axis&1 == 1 {
				if w == 0 {
					wt = 0
					break
				}
				wt *= w
				idx += s.hi[o[axis]] * stride[axis]
			} else {
				wt *= 1 - w
				idx += s.lo[o[axis]] * stride[axis]
			}
		}
		if wt == 0 {
			continue
		}
		sum += wt * float64(data[idx])
	}
	switch r := math.Round(sum); {
	case r <= 0:
		return 0
	case r >= 255:
		return 255
	default:
		return uint8(r)
	}
}

// CropAndResample crops v and then zooms the result.
func CropAndResample(v *Volume, bounds []Span, factors []float64, interp Interpolation) (*Volume, error) {
	cropped, err := Crop(v, bounds)
	if err != nil {
		return nil, fmt.Errorf("crop: %w", err)
	}
	out, err := Zoom(cropped, factors, interp)
	if err != nil {
		return nil, fmt.Errorf("zoom: %w", err)
	}
	return out, nil
}

// Transpose permutes the axes of v so output axis i is input axis perm[i].
func Transpose(v *Volume, perm [4]int) (*Volume, error) {
	var seen [4]bool
	for _, a := range perm {
		if a < 0 || a > 3 || seen[a] {
			return nil, fmt.Errorf("bad axis permutation %v", perm)
		}
		seen[a] = true
	}
	var shape Shape
	for i, a := range perm {
		shape[i] = v.Shape[a]
	}
	inStride := v.Shape.strides()
	var stride [4]int
	for i, a := range perm {
		stride[i] = inStride[a]
	}

	out := &Volume{Shape: shape, Data: make([]uint8, len(v.Data))}
	dst := 0
	for i0 := 0; i0 < shape[0]; i0++ {
		for i1 := 0; i1 < shape[1]; i1++ {
			for i2 := 0; i2 < shape[2]; i2++ {
				base := i0*stride[0] + i1*stride[1] + i2*stride[2]
				for i3 := 0; i3 < shape[3]; i3++ {
					out.Data[dst] = v.Data[base+i3*stride[3]]
					dst++
				}
			}
		}
	}
	return out, nil
}

// SwapAxes exchanges axes a and b.
func SwapAxes(v *Volume, a, b int) (*Volume, error) {
	perm := [4]int{0, 1, 2, 3}
	if a < 0 || a > 3 || b < 0 || b > 3 {
		return nil, fmt.Errorf("cannot swap axes %d and %d of a 4D volume", a, b)
	}
	perm[a], perm[b] = perm[b], perm[a]
	return Transpose(v, perm)
}
