package segment

import (
	"path/filepath"
	"sort"
	"testing"

	"gocv.io/x/gocv"
)

// blobImage returns a dark 40x30 image with two bright squares.
func blobImage(t *testing.T) gocv.Mat {
	const w, h = 40, 30
	pix := make([]byte, w*h)
	fill := func(x0, y0, size int) {
		for y := y0; y < y0+size; y++ {
			for x := x0; x < x0+size; x++ {
				pix[y*w+x] = 220
			}
		}
	}
	fill(4, 4, 7)   // spans 4..10, centroid 7
	fill(25, 15, 9) // spans 25..33, centroid (29, 19)
	mat, err := gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8UC1, pix)
	if err != nil {
		t.Fatal(err)
	}
	return mat
}

func TestCentroids(t *testing.T) {
	img := blobImage(t)
	defer img.Close()

	bgr := gocv.NewMat()
	defer bgr.Close()
	gocv.CvtColor(img, &bgr, gocv.ColorGrayToBGR)

	for _, m := range []gocv.Mat{img, bgr} {
		got, err := Centroids(m)
		if err != nil {
			t.Fatal(err)
		}
		sort.Slice(got, func(i, j int) bool { return got[i].X < got[j].X })
		if len(got) != 2 || got[0] != (Centroid{7, 7}) || got[1] != (Centroid{29, 19}) {
			t.Errorf("unexpected centroids %v for %d channels\n", got, m.Channels())
		}
	}
}

func TestSegmentFile(t *testing.T) {
	img := blobImage(t)
	defer img.Close()
	path := filepath.Join(t.TempDir(), "section_001.tif")
	if !gocv.IMWrite(path, img) {
		t.Fatalf("could not write test image")
	}
	got, err := SegmentFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 centroids, got %v\n", got)
	}
	if _, err := SegmentFile(filepath.Join(t.TempDir(), "missing.tif")); err == nil {
		t.Errorf("expected error for missing file")
	}
}

func TestPreprocess(t *testing.T) {
	img := blobImage(t)
	defer img.Close()

	out, err := Preprocess(img, PreprocessConfig{MedianRadius: 2})
	if err != nil {
		t.Fatal(err)
	}
	defer out.Close()
	if out.Rows() != img.Rows() || out.Cols() != img.Cols() || out.Channels() != 1 {
		t.Fatalf("bad output size %dx%dx%d\n", out.Rows(), out.Cols(), out.Channels())
	}
	if v := out.GetUCharAt(0, 0); v != 0 {
		t.Errorf("flat background should have no edges, got %d\n", v)
	}
	if v := out.GetUCharAt(19, 25); v == 0 {
		t.Errorf("expected an edge on the square boundary")
	}
	if v := out.GetUCharAt(19, 29); v != 0 {
		t.Errorf("flat square interior should have no edges, got %d\n", v)
	}

	if _, err := Preprocess(img, PreprocessConfig{MedianRadius: -1}); err == nil {
		t.Errorf("expected error for negative radius")
	}
}

func TestPreprocessFile(t *testing.T) {
	img := blobImage(t)
	defer img.Close()
	dir := t.TempDir()
	for _, name := range []string{"slice_0001.tif", "slice_0001.png"} {
		path := filepath.Join(dir, name)
		if !gocv.IMWrite(path, img) {
			t.Fatalf("could not write test image %s", name)
		}
		pages, err := PreprocessFile(path, PreprocessConfig{MedianRadius: 2})
		if err != nil {
			t.Fatalf("%s: %v\n", name, err)
		}
		if len(pages) != 1 {
			t.Fatalf("%s: expected one page, got %d\n", name, len(pages))
		}
		if b := pages[0].Bounds(); b.Dx() != 40 || b.Dy() != 30 {
			t.Errorf("%s: bad output bounds %v\n", name, b)
		}
	}
	for _, name := range []string{"missing.tif", "missing.png"} {
		if _, err := PreprocessFile(filepath.Join(dir, name), PreprocessConfig{}); err == nil {
			t.Errorf("expected error for missing file %s\n", name)
		}
	}
}
