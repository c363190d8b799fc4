package segment

import (
	"bytes"
	"image"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestContourMoments(t *testing.T) {
	// 4x2 rectangle from (2,3), traced both ways
	rect := []image.Point{{2, 3}, {6, 3}, {6, 5}, {2, 5}}
	m := ContourMoments(rect)
	if m.M00 != 8 {
		t.Errorf("expected area 8, got %f\n", m.M00)
	}
	c, ok := m.Centroid()
	if !ok || c != (Centroid{4, 4}) {
		t.Errorf("expected centroid (4,4), got %v %t\n", c, ok)
	}

	rev := []image.Point{{2, 5}, {6, 5}, {6, 3}, {2, 3}}
	if diff := cmp.Diff(m, ContourMoments(rev)); diff != "" {
		t.Errorf("orientation changed moments (-want +got):\n%s", diff)
	}

	// right triangle centroid at (1.33, 1.33) truncates to (1,1)
	tri := []image.Point{{0, 0}, {4, 0}, {0, 4}}
	c, ok = ContourMoments(tri).Centroid()
	if !ok || c != (Centroid{1, 1}) {
		t.Errorf("expected centroid (1,1), got %v %t\n", c, ok)
	}
}

func TestDegenerateContours(t *testing.T) {
	for _, pts := range [][]image.Point{nil, {{3, 3}}, {{0, 0}, {5, 0}}, {{0, 0}, {5, 0}, {10, 0}}} {
		if _, ok := ContourMoments(pts).Centroid(); ok {
			t.Errorf("contour %v should have no centroid\n", pts)
		}
	}
	got := ContourCentroids([][]image.Point{{{1, 1}}, {{0, 0}, {2, 0}, {2, 2}, {0, 2}}})
	if diff := cmp.Diff([]Centroid{{1, 1}}, got); diff != "" {
		t.Errorf("centroids mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteCentroidsCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCentroidsCSV(&buf, []Centroid{{10, 20}, {3, 4}}); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != "x,y\n10,20\n3,4\n" {
		t.Errorf("unexpected csv %q\n", got)
	}
	buf.Reset()
	if err := WriteCentroidsCSV(&buf, nil); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "x,y\n" {
		t.Errorf("expected header only, got %q\n", buf.String())
	}
}
