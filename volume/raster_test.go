package volume

import (
	"errors"
	"math"
	"testing"

	"github.com/janelia-flyem/cellvox/vox"
)

func unitConfig(shape Shape) RasterConfig {
	return RasterConfig{Scale: vox.Scale{1, 1, 1}, Shape: shape}
}

func TestRasterizeScenario(t *testing.T) {
	points := []vox.Vector3d{{1, 1, 1}, {100, 100, 100}}
	colors := []vox.Color{{1, 0, 0}, {0, 1, 0}}
	v, err := Rasterize(points, colors, unitConfig(Shape{10, 10, 10, 3}))
	if err != nil {
		t.Fatal(err)
	}
	if got := v.Voxel(1, 1, 1); got[0] != 255 || got[1] != 0 || got[2] != 0 {
		t.Errorf("expected (255,0,0) at (1,1,1), got %v\n", got)
	}
	if n := v.NonZeroVoxels(); n != 1 {
		t.Errorf("expected exactly 1 non-zero voxel, got %d\n", n)
	}
}

func TestRasterizeEmpty(t *testing.T) {
	v, err := Rasterize(nil, nil, unitConfig(Shape{4, 5, 6, 3}))
	if err != nil {
		t.Fatal(err)
	}
	if v.Shape != (Shape{4, 5, 6, 3}) {
		t.Errorf("bad shape %s\n", v.Shape)
	}
	if v.NonZeroVoxels() != 0 {
		t.Errorf("expected all-zero volume")
	}
}

func TestRasterizeOutOfBounds(t *testing.T) {
	points := []vox.Vector3d{
		{-1, 0, 0},
		{0, 10, 0},
		{0, 0, 10.5},
		{math.NaN(), 1, 1},
		{math.Inf(-1), 1, 1},
		{-0.5, 2, 2}, // truncates to 0, inside
	}
	colors := make([]vox.Color, len(points))
	for i := range colors {
		colors[i] = vox.Color{1, 1, 1}
	}
	v, err := Rasterize(points, colors, unitConfig(Shape{10, 10, 10, 3}))
	if err != nil {
		t.Fatalf("out of bounds points should not cause an error: %v\n", err)
	}
	if n := v.NonZeroVoxels(); n != 1 {
		t.Errorf("expected 1 voxel written, got %d\n", n)
	}
	if v.At(0, 2, 2, 0) != 255 {
		t.Errorf("expected truncation toward zero to land at (0,2,2)")
	}
}

func TestRasterizeLastWriterWins(t *testing.T) {
	points := []vox.Vector3d{{2.2, 3.7, 1.1}, {2.9, 3.1, 1.8}}
	colors := []vox.Color{{1, 0, 0}, {0, 0.5, 1}}
	v, err := Rasterize(points, colors, unitConfig(Shape{5, 5, 5, 3}))
	if err != nil {
		t.Fatal(err)
	}
	got := v.Voxel(2, 3, 1)
	if got[0] != 0 || got[1] != 127 || got[2] != 255 {
		t.Errorf("expected last color (0,127,255), got %v\n", got)
	}
}

func TestRasterizeScaleAndAxisOrder(t *testing.T) {
	// 25x25x50 um voxels with z stored along the first axis
	cfg := RasterConfig{
		Scale:     vox.Scale{1.0 / 25, 1.0 / 25, 1.0 / 50},
		Shape:     Shape{8, 6, 4, 3},
		AxisOrder: [3]int{2, 1, 0},
	}
	points := []vox.Vector3d{{80, 130, 310}}
	colors := []vox.Color{{0, 1, 0}}
	v, err := Rasterize(points, colors, cfg)
	if err != nil {
		t.Fatal(err)
	}
	// x=80/25=3.2 -> 3, y=130/25=5.2 -> 5, z=310/50=6.2 -> 6
	if v.At(6, 5, 3, 1) != 255 {
		t.Errorf("expected point at volume index (6,5,3)")
	}

	cfg.AxisOrder = [3]int{0, 0, 1}
	if _, err := Rasterize(points, colors, cfg); err == nil {
		t.Errorf("expected error for axis order that is not a permutation")
	}
}

func TestRasterizeSkipAndStep(t *testing.T) {
	points := []vox.Vector3d{{0, 0, 0}, {1, 1, 1}, {2, 2, 2}, {3, 3, 3}, {4, 4, 4}}
	colors := []vox.Color{{1, 1, 1}, {1, 1, 1}, {0, 0, 0}, {1, 1, 1}, {1, 1, 1}}
	cfg := unitConfig(Shape{5, 5, 5, 3})
	cfg.Step = 2
	cfg.SkipZeroColor = true
	v, err := Rasterize(points, colors, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if v.At(0, 0, 0, 0) != 255 || v.At(4, 4, 4, 0) != 255 {
		t.Errorf("expected points 0 and 4 written")
	}
	if v.NonZeroVoxels() != 2 {
		t.Errorf("expected 2 voxels, got %d\n", v.NonZeroVoxels())
	}
}

func TestRasterizeErrors(t *testing.T) {
	_, err := Rasterize([]vox.Vector3d{{1, 1, 1}}, nil, unitConfig(Shape{2, 2, 2, 3}))
	if !errors.Is(err, ErrLengthMismatch) {
		t.Errorf("expected ErrLengthMismatch, got %v\n", err)
	}
	bad := []RasterConfig{
		{Scale: vox.Scale{0, 1, 1}, Shape: Shape{2, 2, 2, 3}},
		{Scale: vox.Scale{1, 1, 1}, Shape: Shape{2, 0, 2, 3}},
		{Scale: vox.Scale{1, 1, 1}, Shape: Shape{2, 2, 2, 1}},
		{Scale: vox.Scale{1, 1, 1}, Shape: Shape{2, 2, 2, 3}, Step: -1},
	}
	for i, cfg := range bad {
		if _, err := Rasterize(nil, nil, cfg); err == nil {
			t.Errorf("config %d: expected error\n", i)
		}
	}
}
