package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/janelia-flyem/cellvox/pointcloud"
	"github.com/janelia-flyem/cellvox/storage"
	"github.com/janelia-flyem/cellvox/volume"
	"github.com/janelia-flyem/cellvox/vox"
)

const testConfig = `
[logging]
logfile = "logs/cellvox.log"
max_log_size = 100

[output]
ref = "results"
compression = "lz4"
tiff = true

[sparse]
input_dir = "ply"
cell_type = "PV_CCF"
step = 3
crop = [[0, 0], [0, 2]]
zoom = [1.0, 1.0, 1.0]
shape = [4, 4, 4, 3]
overflow = "saturate"

[dbscan]
input_dir = "points/SST"
eps = 100.0
min_points = [5, 10]
`

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "cellvox.toml")
	if err := os.WriteFile(path, []byte(testConfig), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t)
	dir := filepath.Dir(path)
	c, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.Logging.Logfile != filepath.Join(dir, "logs", "cellvox.log") || c.Logging.MaxSize != 100 {
		t.Errorf("bad logging section %+v\n", c.Logging)
	}
	if c.Output.Ref != filepath.Join(dir, "results") {
		t.Errorf("expected output ref relative to config, got %q\n", c.Output.Ref)
	}
	if c.Sparse.InputDir != filepath.Join(dir, "ply") || c.Sparse.Step != 3 {
		t.Errorf("bad sparse section %+v\n", c.Sparse)
	}
	if diff := cmp.Diff([]int{2, 1, 0}, c.Sparse.AxisOrder); diff != "" {
		t.Errorf("expected default axis order (-want +got):\n%s", diff)
	}
	if c.DBSCAN.Eps != 100 || c.DBSCAN.CropX != 320 || len(c.DBSCAN.Percentiles) != 9 {
		t.Errorf("bad dbscan section %+v\n", c.DBSCAN)
	}
	if c.Segment.Workers != 4 || c.Preprocess.MedianRadius != 2 {
		t.Errorf("expected segment and preprocess defaults, got %+v %+v\n", c.Segment, c.Preprocess)
	}

	if _, err := LoadConfig(""); err == nil {
		t.Errorf("expected error for empty filename")
	}
	bad := filepath.Join(dir, "bad.toml")
	if err := os.WriteFile(bad, []byte("[sparse\nstep = "), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(bad); err == nil {
		t.Errorf("expected error for malformed TOML")
	}
}

func TestBucketRefUnchanged(t *testing.T) {
	c := Default()
	c.Output.Ref = "s3://lab-bucket/runs?region=us-east-1"
	if err := c.convertPathsToAbsolute("/etc/cellvox/cellvox.toml"); err != nil {
		t.Fatal(err)
	}
	if c.Output.Ref != "s3://lab-bucket/runs?region=us-east-1" {
		t.Errorf("bucket ref was rewritten to %q\n", c.Output.Ref)
	}
}

func TestPresets(t *testing.T) {
	if p := PresetFor("SST_CCF"); p != CCFPreset {
		t.Errorf("expected CCF preset, got %+v\n", p)
	}
	if p := PresetFor("PV"); p != DefaultPreset {
		t.Errorf("expected default preset, got %+v\n", p)
	}
}

func TestSparseJobFromConfig(t *testing.T) {
	path := writeConfig(t)
	dir := filepath.Dir(path)
	if err := os.Mkdir(filepath.Join(dir, "ply"), 0755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"brain10.ply", "brain2.ply", "notes.txt"} {
		f, err := os.Create(filepath.Join(dir, "ply", name))
		if err != nil {
			t.Fatal(err)
		}
		pointcloud.WritePLY(f, &pointcloud.Cloud{}, pointcloud.ASCII)
		f.Close()
	}
	mask, _ := volume.New(volume.Shape{4, 4, 4, 1})
	if err := volume.WriteFile(filepath.Join(dir, "mask.vol"), mask, vox.Snappy); err != nil {
		t.Fatal(err)
	}

	c, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	c.Sparse.Mask = filepath.Join(dir, "mask.vol")
	store, err := storage.Open(context.Background(), c.Output.Ref)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	job, err := c.SparseJob(store)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{filepath.Join(dir, "ply", "brain2.ply"), filepath.Join(dir, "ply", "brain10.ply")}
	if diff := cmp.Diff(want, job.Inputs); diff != "" {
		t.Errorf("inputs mismatch (-want +got):\n%s", diff)
	}
	if job.Raster.Scale != (vox.Scale{1.0 / 25, 1.0 / 25, 1.0 / 50}) {
		t.Errorf("expected CCF scale, got %v\n", job.Raster.Scale)
	}
	if job.Raster.AxisOrder != [3]int{2, 1, 0} || job.Step != 3 || job.Overflow != volume.OverflowSaturate {
		t.Errorf("unexpected job settings %+v\n", job)
	}
	if job.Mask == nil || job.Atlas != nil {
		t.Errorf("expected only a mask to be loaded")
	}
	if job.Output.Compression != vox.LZ4 || !job.Output.TIFF {
		t.Errorf("unexpected output options %+v\n", job.Output)
	}
	if diff := cmp.Diff([]volume.Span{{}, volume.Upto(2)}, job.Crop); diff != "" {
		t.Errorf("crop mismatch (-want +got):\n%s", diff)
	}

	c.Sparse.Shape = []int{4, 4, 4}
	if _, err := c.SparseJob(store); err == nil {
		t.Errorf("expected error for a 3D shape")
	}
	c.Sparse.Shape = []int{4, 4, 4, 3}
	c.Sparse.Interpolation = "cubic"
	if _, err := c.SparseJob(store); err == nil {
		t.Errorf("expected error for unknown interpolation")
	}
}

func TestClusterJobFromConfig(t *testing.T) {
	path := writeConfig(t)
	dir := filepath.Join(filepath.Dir(path), "points", "SST")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "animal1_pointList.txt"), []byte("1 2 3\n"), 0644); err != nil {
		t.Fatal(err)
	}
	c, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	job, err := c.ClusterJob(nil)
	if err != nil {
		t.Fatal(err)
	}
	if job.CellType != "SST" || job.Cut != DefaultPreset.Cut || job.Resolution != DefaultPreset.Resolution {
		t.Errorf("expected default preset for SST, got %+v\n", job)
	}
	if job.Shape != (volume.Shape{600, 350, 400, 3}) || job.Eps != 100 {
		t.Errorf("unexpected clustering settings %+v\n", job)
	}
	if diff := cmp.Diff([]int{5, 10}, job.MinPoints); diff != "" {
		t.Errorf("min points mismatch (-want +got):\n%s", diff)
	}

	c.DBSCAN.InputDir = ""
	if _, err := c.ClusterJob(nil); err == nil {
		t.Errorf("expected error without an input directory")
	}
}

func TestOpenStore(t *testing.T) {
	c, err := LoadOrDefault("")
	if err != nil {
		t.Fatal(err)
	}
	c.Output.Ref = filepath.Join(t.TempDir(), "run")
	store, err := c.OpenStore(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	if store.String() != c.Output.Ref {
		t.Errorf("store opened at %s, want %s\n", store, c.Output.Ref)
	}
	c.Output.Ref = ""
	if _, err := c.OpenStore(context.Background()); err == nil {
		t.Errorf("expected error without an output location")
	}
}
