package pipeline

import (
	"bytes"
	"context"
	"encoding/binary"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gocv.io/x/gocv"
	"golang.org/x/image/tiff"

	"github.com/janelia-flyem/cellvox/segment"
	"github.com/janelia-flyem/cellvox/volume"
)

// writeSection writes a dark 32x24 image with one bright 6x6 square at (10, 8).
func writeSection(t *testing.T, path string) {
	t.Helper()
	const w, h = 32, 24
	pix := make([]byte, w*h)
	for y := 8; y < 14; y++ {
		for x := 10; x < 16; x++ {
			pix[y*w+x] = 200
		}
	}
	mat, err := gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8UC1, pix)
	if err != nil {
		t.Fatal(err)
	}
	defer mat.Close()
	if !gocv.IMWrite(path, mat) {
		t.Fatalf("could not write %s", path)
	}
}

func TestSegmentJob(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "section_07.tif")
	writeSection(t, input)

	store := testStore(t)
	job := &SegmentJob{Store: store, Inputs: []string{input}}
	m, err := job.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Outputs) != 1 || m.Outputs[0] != "section_07_centroids.csv" {
		t.Fatalf("unexpected outputs %v\n", m.Outputs)
	}
	data, err := store.Get(context.Background(), "section_07_centroids.csv")
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(string(data)); got != "x,y\n12,10" {
		t.Errorf("unexpected centroid CSV %q\n", got)
	}
	if ok, _ := store.Exists(context.Background(), "segment_manifest.json"); !ok {
		t.Errorf("expected a segment manifest")
	}
}

func TestPreprocessJob(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "slice_0001.tif")
	writeSection(t, input)

	store := testStore(t)
	job := &PreprocessJob{Store: store, Inputs: []string{input}, Config: segment.PreprocessConfig{MedianRadius: 1}}
	if _, err := job.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	data, err := store.Get(context.Background(), "slice_0001_processed.tif")
	if err != nil {
		t.Fatal(err)
	}
	img, err := tiff.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 32 || b.Dy() != 24 {
		t.Errorf("bad output bounds %v\n", b)
	}

	bad := &PreprocessJob{Store: store, Config: segment.PreprocessConfig{MedianRadius: -1}}
	if _, err := bad.Run(context.Background()); err == nil {
		t.Errorf("expected error for negative radius")
	}
}

// writeGrayPages writes gray images as an uncompressed little-endian multi-page TIFF.
func writeGrayPages(t *testing.T, path string, pages ...*image.Gray) {
	t.Helper()
	le := binary.LittleEndian
	buf := []byte{'I', 'I', 42, 0, 0, 0, 0, 0}
	next := 4
	for _, p := range pages {
		w, h := p.Bounds().Dx(), p.Bounds().Dy()
		dataOff := len(buf)
		for y := 0; y < h; y++ {
			buf = append(buf, p.Pix[y*p.Stride:y*p.Stride+w]...)
		}
		if len(buf)%2 == 1 {
			buf = append(buf, 0)
		}
		le.PutUint32(buf[next:], uint32(len(buf)))
		entries := [][3]int{
			{256, 4, w}, {257, 4, h}, {258, 3, 8}, {259, 3, 1}, {262, 3, 1},
			{273, 4, dataOff}, {277, 3, 1}, {278, 4, h}, {279, 4, w * h},
		}
		buf = le.AppendUint16(buf, uint16(len(entries)))
		for _, e := range entries {
			buf = le.AppendUint16(buf, uint16(e[0]))
			buf = le.AppendUint16(buf, uint16(e[1]))
			buf = le.AppendUint32(buf, 1)
			if e[1] == 3 {
				buf = le.AppendUint16(buf, uint16(e[2]))
				buf = append(buf, 0, 0)
			} else {
				buf = le.AppendUint32(buf, uint32(e[2]))
			}
		}
		next = len(buf)
		buf = le.AppendUint32(buf, 0)
	}
	if err := os.WriteFile(path, buf, 0644); err != nil {
		t.Fatal(err)
	}
}

// squarePage returns a dark 32x24 page with a bright 6x6 square at (x0, y0).
func squarePage(x0, y0 int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, 32, 24))
	for y := y0; y < y0+6; y++ {
		for x := x0; x < x0+6; x++ {
			img.Pix[y*img.Stride+x] = 200
		}
	}
	return img
}

func TestLoadVolumeMultiPage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "atlas.tif")
	writeGrayPages(t, path, squarePage(10, 8), squarePage(20, 12))
	v, err := LoadVolume(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := (volume.Shape{2, 24, 32, 1}); v.Shape != want {
		t.Fatalf("expected shape %s, got %s\n", want, v.Shape)
	}
	if v.At(0, 8, 10, 0) != 200 || v.At(0, 12, 20, 0) != 0 || v.At(1, 12, 20, 0) != 200 {
		t.Errorf("pages loaded out of order\n")
	}
}

func TestPreprocessJobMultiPage(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "stack.tif")
	writeGrayPages(t, input, squarePage(10, 8), squarePage(20, 12))

	store := testStore(t)
	job := &PreprocessJob{Store: store, Inputs: []string{input}}
	m, err := job.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"stack_processed/stack_processed_0000.tif", "stack_processed/stack_processed_0001.tif"}
	if diff := cmp.Diff(want, m.Outputs); diff != "" {
		t.Fatalf("outputs mismatch (-want +got):\n%s", diff)
	}
	// Each page keeps the edges of its own square.
	for i, edge := range []image.Point{{10, 10}, {20, 14}} {
		data, err := store.Get(context.Background(), want[i])
		if err != nil {
			t.Fatal(err)
		}
		img, err := tiff.Decode(bytes.NewReader(data))
		if err != nil {
			t.Fatal(err)
		}
		g, ok := img.(*image.Gray)
		if !ok {
			t.Fatalf("page %d: expected gray output, got %T\n", i, img)
		}
		if g.GrayAt(edge.X, edge.Y).Y == 0 {
			t.Errorf("page %d: expected an edge at %v\n", i, edge)
		}
		other := []image.Point{{20, 14}, {10, 10}}[i]
		if g.GrayAt(other.X, other.Y).Y != 0 {
			t.Errorf("page %d: found an edge from the other page at %v\n", i, other)
		}
	}
}
