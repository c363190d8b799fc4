package volume

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSliceRGB(t *testing.T) {
	v := patterned(Shape{3, 4, 5, 3})
	img, err := v.Slice(0, 2)
	if err != nil {
		t.Fatal(err)
	}
	rgba, ok := img.(*image.NRGBA)
	if !ok {
		t.Fatalf("expected *image.NRGBA, got %T\n", img)
	}
	if rgba.Bounds().Dx() != 5 || rgba.Bounds().Dy() != 4 {
		t.Fatalf("bad slice bounds %s\n", rgba.Bounds())
	}
	c := rgba.NRGBAAt(3, 1)
	px := v.Voxel(2, 1, 3)
	if c.R != px[0] || c.G != px[1] || c.B != px[2] || c.A != 255 {
		t.Errorf("slice pixel %v doesn't match voxel %v\n", c, px)
	}

	img, err = v.Slice(2, 4)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 4 || img.Bounds().Dy() != 3 {
		t.Errorf("bad axis 2 slice bounds %s\n", img.Bounds())
	}
	if _, err := v.Slice(0, 3); err == nil {
		t.Errorf("expected error for slice index past extent")
	}
}

func TestTIFFStack(t *testing.T) {
	dir := t.TempDir()
	for _, nc := range []int{1, 3} {
		v := patterned(Shape{3, 6, 7, nc})
		paths, err := WriteTIFFStack(dir, "stack", v)
		if err != nil {
			t.Fatal(err)
		}
		if len(paths) != 3 {
			t.Fatalf("expected 3 slices, got %d\n", len(paths))
		}
		got, err := ReadTIFFStack(paths)
		if err != nil {
			t.Fatal(err)
		}
		if !got.Equal(v) {
			t.Errorf("%d-channel volume changed after TIFF round trip (got %s)\n", nc, got.Shape)
		}
	}
}

func TestFromImagesGray16(t *testing.T) {
	mask := image.NewGray16(image.Rect(0, 0, 2, 2))
	mask.SetGray16(0, 0, color.Gray16{Y: 1})
	mask.SetGray16(1, 1, color.Gray16{Y: 1})
	v, err := FromImages([]image.Image{mask})
	if err != nil {
		t.Fatal(err)
	}
	if want := (Shape{1, 2, 2, 1}); v.Shape != want {
		t.Fatalf("expected shape %s, got %s\n", want, v.Shape)
	}
	if diff := cmp.Diff([]uint8{1, 0, 0, 1}, v.Data); diff != "" {
		t.Errorf("16 bit mask values changed (-want +got):\n%s", diff)
	}

	// Through a TIFF file, as masks usually arrive.
	path := filepath.Join(t.TempDir(), "mask.tif")
	if err := WriteTIFF(path, mask); err != nil {
		t.Fatal(err)
	}
	read, err := ReadTIFFStack([]string{path})
	if err != nil {
		t.Fatal(err)
	}
	if !read.Equal(v) {
		t.Errorf("16 bit TIFF mask loaded as %s %v\n", read.Shape, read.Data)
	}

	wide := image.NewGray16(image.Rect(0, 0, 2, 2))
	wide.SetGray16(0, 0, color.Gray16{Y: 1000})
	wide.SetGray16(1, 0, color.Gray16{Y: 500})
	v, err = FromImages([]image.Image{wide, mask})
	if err != nil {
		t.Fatal(err)
	}
	if v.Shape[3] != 1 {
		t.Fatalf("expected one channel, got %s\n", v.Shape)
	}
	if diff := cmp.Diff([]uint8{255, 128, 0, 0, 0, 0, 0, 0}, v.Data); diff != "" {
		t.Errorf("values above a byte should scale to the stack maximum (-want +got):\n%s", diff)
	}
}
