package volume

import (
	"errors"
	"testing"
)

func filled(shape Shape, val uint8) *Volume {
	v, _ := New(shape)
	for i := range v.Data {
		v.Data[i] = val
	}
	return v
}

func patterned(shape Shape) *Volume {
	v, _ := New(shape)
	for i := range v.Data {
		v.Data[i] = uint8(i*37 + 11)
	}
	return v
}

func TestApplyMask(t *testing.T) {
	shape := Shape{3, 4, 5, 3}
	v := patterned(shape)

	out, err := ApplyMask(v, filled(shape, 1))
	if err != nil {
		t.Fatal(err)
	}
	if !out.Equal(v) {
		t.Errorf("all-ones mask should be the identity")
	}

	out, err = ApplyMask(v, filled(Shape{3, 4, 5, 1}, 0))
	if err != nil {
		t.Fatal(err)
	}
	if out.NonZeroVoxels() != 0 {
		t.Errorf("all-zeros mask should zero the volume")
	}

	// broadcast a single channel mask keeping only x == 1
	mask := filled(Shape{3, 4, 5, 1}, 0)
	for y := 0; y < 4; y++ {
		for z := 0; z < 5; z++ {
			mask.Set(1, y, z, 0, 1)
		}
	}
	out, err = ApplyMask(v, mask)
	if err != nil {
		t.Fatal(err)
	}
	for x := 0; x < 3; x++ {
		for c := 0; c < 3; c++ {
			got, orig := out.At(x, 2, 3, c), v.At(x, 2, 3, c)
			if x == 1 && got != orig {
				t.Errorf("masked-in voxel changed: %d != %d\n", got, orig)
			}
			if x != 1 && got != 0 {
				t.Errorf("masked-out voxel not zero at x=%d: %d\n", x, got)
			}
		}
	}
	if v.NonZeroVoxels() == 0 {
		t.Errorf("input volume modified")
	}
}

func TestApplyMaskShapeMismatch(t *testing.T) {
	v := filled(Shape{3, 4, 5, 3}, 1)
	for _, shape := range []Shape{{3, 4, 6, 3}, {3, 4, 5, 2}} {
		if _, err := ApplyMask(v, filled(shape, 1)); !errors.Is(err, ErrShapeMismatch) {
			t.Errorf("mask %s: expected ErrShapeMismatch, got %v\n", shape, err)
		}
	}
}

func TestComposite(t *testing.T) {
	shape := Shape{2, 3, 4, 3}
	v := patterned(shape)

	out, err := Composite(v, filled(shape, 0), OverflowWrap)
	if err != nil {
		t.Fatal(err)
	}
	if !out.Equal(v) {
		t.Errorf("composite with zero atlas should be the identity")
	}

	a := filled(Shape{1, 1, 1, 3}, 200)
	b := filled(Shape{1, 1, 1, 1}, 100)
	wrapped, err := Composite(a, b, OverflowWrap)
	if err != nil {
		t.Fatal(err)
	}
	if wrapped.Data[2] != 44 {
		t.Errorf("expected 200+100 to wrap to 44, got %d\n", wrapped.Data[2])
	}
	saturated, err := Composite(a, b, OverflowSaturate)
	if err != nil {
		t.Fatal(err)
	}
	if saturated.Data[0] != 255 {
		t.Errorf("expected saturation at 255, got %d\n", saturated.Data[0])
	}
	small, _ := Composite(filled(Shape{1, 1, 1, 1}, 5), filled(Shape{1, 1, 1, 1}, 7), OverflowSaturate)
	if small.Data[0] != 12 {
		t.Errorf("expected 12, got %d\n", small.Data[0])
	}

	if _, err := Composite(v, filled(Shape{2, 3, 5, 3}, 0), OverflowWrap); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("expected ErrShapeMismatch, got %v\n", err)
	}
	if _, err := Composite(v, filled(shape, 0), OverflowPolicy(9)); err == nil {
		t.Errorf("expected error for unknown policy")
	}
}

func TestParsePolicies(t *testing.T) {
	if p, err := ParseOverflowPolicy("saturate"); err != nil || p != OverflowSaturate {
		t.Errorf("bad parse of saturate: %s %v\n", p, err)
	}
	if p, err := ParseOverflowPolicy(""); err != nil || p != OverflowWrap {
		t.Errorf("expected wrap default: %s %v\n", p, err)
	}
	if _, err := ParseOverflowPolicy("bounce"); err == nil {
		t.Errorf("expected error")
	}
	if i, err := ParseInterpolation("nearest"); err != nil || i != Nearest {
		t.Errorf("bad parse of nearest: %s %v\n", i, err)
	}
}
