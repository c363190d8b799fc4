package cluster

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/janelia-flyem/cellvox/vox"
)

func blob(center vox.Vector3d, n int, spacing float64) []vox.Vector3d {
	pts := make([]vox.Vector3d, 0, n)
	for i := 0; i < n; i++ {
		pts = append(pts, center.Add(vox.Vector3d{float64(i%3) * spacing, float64(i/3%3) * spacing, float64(i/9) * spacing}))
	}
	return pts
}

func TestDBSCANTwoClusters(t *testing.T) {
	points := blob(vox.Vector3d{0, 0, 0}, 9, 10)
	points = append(points, vox.Vector3d{1000, 1000, 1000}) // isolated
	points = append(points, blob(vox.Vector3d{500, 0, 0}, 9, 10)...)

	res, err := DBSCAN(points, Params{Eps: 15, MinPts: 3})
	if err != nil {
		t.Fatal(err)
	}
	if res.NumClusters != 2 {
		t.Fatalf("expected 2 clusters, got %d\n", res.NumClusters)
	}
	for i := 0; i < 9; i++ {
		if res.Labels[i] != 0 {
			t.Errorf("point %d: expected cluster 0, got %d\n", i, res.Labels[i])
		}
		if res.Labels[10+i] != 1 {
			t.Errorf("point %d: expected cluster 1, got %d\n", 10+i, res.Labels[10+i])
		}
	}
	if res.Labels[9] != Noise {
		t.Errorf("isolated point should be noise, got %d\n", res.Labels[9])
	}
	if diff := cmp.Diff([]int{9, 9}, res.Sizes()); diff != "" {
		t.Errorf("sizes mismatch (-want +got):\n%s", diff)
	}
	if res.NoiseCount() != 1 || res.MaxLabel() != 1 {
		t.Errorf("bad noise count %d or max label %d\n", res.NoiseCount(), res.MaxLabel())
	}
}

func TestDBSCANBorderPoint(t *testing.T) {
	// the first point is not core but is within eps of the core point at index 1
	points := []vox.Vector3d{{-9, 0, 0}, {0, 0, 0}, {5, 0, 0}, {0, 5, 0}}
	res, err := DBSCAN(points, Params{Eps: 10, MinPts: 4})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int{0, 0, 0, 0}, res.Labels); diff != "" {
		t.Errorf("labels mismatch (-want +got):\n%s", diff)
	}
}

func TestDBSCANAllNoise(t *testing.T) {
	points := []vox.Vector3d{{0, 0, 0}, {100, 0, 0}, {0, 100, 0}}
	res, err := DBSCAN(points, Params{Eps: 10, MinPts: 2})
	if err != nil {
		t.Fatal(err)
	}
	if res.NumClusters != 0 || res.MaxLabel() != Noise || res.NoiseCount() != 3 {
		t.Errorf("expected all noise, got %+v\n", res)
	}
	if _, err := DBSCAN(points, Params{Eps: 0, MinPts: 2}); err == nil {
		t.Errorf("expected error for zero eps")
	}
}

func TestNeighborCounts(t *testing.T) {
	points := []vox.Vector3d{{0, 0, 0}, {3, 4, 0}, {6, 8, 0}, {-100, 0, 0}}
	got := NeighborCounts(points, 5)
	if diff := cmp.Diff([]int{2, 3, 2, 1}, got); diff != "" {
		t.Errorf("counts mismatch (-want +got):\n%s", diff)
	}
}
