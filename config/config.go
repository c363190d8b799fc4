/*
Package config reads the TOML file that configures the cellvox tools and turns each
section into a ready to run pipeline job.  Relative paths in the file are resolved
against the directory holding it.
*/
package config

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/janelia-flyem/cellvox/pipeline"
	"github.com/janelia-flyem/cellvox/pointcloud"
	"github.com/janelia-flyem/cellvox/segment"
	"github.com/janelia-flyem/cellvox/storage"
	"github.com/janelia-flyem/cellvox/volume"
	"github.com/janelia-flyem/cellvox/vox"
)

// Preset holds the acquisition resolution and half-brain cut of a data set.
type Preset struct {
	Resolution vox.Vector3d
	Cut        float64
}

var (
	// CCFPreset is used for cell types registered to the Allen CCF.
	CCFPreset = Preset{Resolution: vox.Vector3d{25, 25, 50}, Cut: 228}

	// DefaultPreset is used for all other cell types.
	DefaultPreset = Preset{Resolution: vox.Vector3d{20, 20, 50}, Cut: 325}
)

// PresetFor returns the preset for a cell type name.
func PresetFor(cellType string) Preset {
	if strings.Contains(strings.ToUpper(cellType), "CCF") {
		return CCFPreset
	}
	return DefaultPreset
}

// Config is the decoded TOML configuration.
type Config struct {
	Logging    vox.LogConfig
	Output     OutputConfig
	Sparse     SparseConfig
	DBSCAN     DBSCANConfig `toml:"dbscan"`
	Segment    SegmentConfig
	Preprocess PreprocessConfig
}

type OutputConfig struct {
	// Ref is a directory, file:// URL, s3:// or gs:// bucket reference.
	Ref         string `toml:"ref"`
	Compression string `toml:"compression"`
	PLYFormat   string `toml:"ply_format"`
	TIFF        bool   `toml:"tiff"`
	GLB         bool   `toml:"glb"`
	StopOnError bool   `toml:"stop_on_error"`
}

type SparseConfig struct {
	InputDir      string    `toml:"input_dir"`
	Atlas         string    `toml:"atlas"`
	Mask          string    `toml:"mask"`
	CellType      string    `toml:"cell_type"`
	Resolution    []float64 `toml:"resolution"`
	Shape         []int     `toml:"shape"`
	AxisOrder     []int     `toml:"axis_order"`
	Step          int       `toml:"step"`
	NumFiles      int       `toml:"num_files"`
	Divisor       int       `toml:"divisor"`
	Crop          [][]int   `toml:"crop"`
	Zoom          []float64 `toml:"zoom"`
	Interpolation string    `toml:"interpolation"`
	Overflow      string    `toml:"overflow"`
	Workers       int       `toml:"workers"`
}

type DBSCANConfig struct {
	InputDir    string    `toml:"input_dir"`
	CountsDir   string    `toml:"counts_dir"`
	Mask        string    `toml:"mask"`
	CellType    string    `toml:"cell_type"`
	Resolution  []float64 `toml:"resolution"`
	Cut         float64   `toml:"cut"`
	Eps         float64   `toml:"eps"`
	Percentiles []float64 `toml:"percentiles"`
	MinPoints   []int     `toml:"min_points"`
	Shape       []int     `toml:"shape"`
	CropX       int       `toml:"crop_x"`
	Workers     int       `toml:"workers"`
}

type SegmentConfig struct {
	InputDir string `toml:"input_dir"`
	Workers  int    `toml:"workers"`
}

type PreprocessConfig struct {
	InputDir     string `toml:"input_dir"`
	MedianRadius int    `toml:"median_radius"`
	Workers      int    `toml:"workers"`
}

// Default returns the settings for whole-brain atlas data.
func Default() *Config {
	return &Config{
		Output: OutputConfig{
			Ref:         "output",
			Compression: "zstd",
			PLYFormat:   "binary_little_endian",
		},
		Sparse: SparseConfig{
			Shape:         []int{400, 350, 320, 3},
			AxisOrder:     []int{2, 1, 0},
			Divisor:       2,
			Crop:          [][]int{{0, 0}, {0, 250}},
			Zoom:          []float64{2, 1, 1, 1},
			Interpolation: "linear",
			Overflow:      "wrap",
		},
		DBSCAN: DBSCANConfig{
			Eps:         150,
			Percentiles: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90},
			Shape:       []int{600, 350, 400, 3},
			CropX:       320,
		},
		Segment:    SegmentConfig{Workers: 4},
		Preprocess: PreprocessConfig{MedianRadius: 2},
	}
}

// LoadConfig decodes a TOML file over the defaults.
func LoadConfig(filename string) (*Config, error) {
	if filename == "" {
		return nil, fmt.Errorf("no TOML configuration file provided")
	}
	c := Default()
	if _, err := toml.DecodeFile(filename, c); err != nil {
		return nil, fmt.Errorf("could not decode TOML config: %v", err)
	}
	vox.Debugf("Config from %s: %+v\n", filename, *c)
	if err := c.convertPathsToAbsolute(filename); err != nil {
		return nil, fmt.Errorf("could not convert relative paths to absolute paths in TOML config: %v", err)
	}
	return c, nil
}

// LoadOrDefault loads filename, or returns the defaults when filename is empty.
func LoadOrDefault(filename string) (*Config, error) {
	if filename == "" {
		return Default(), nil
	}
	return LoadConfig(filename)
}

// OpenStore opens the [output] destination.
func (c *Config) OpenStore(ctx context.Context) (*storage.Store, error) {
	if c.Output.Ref == "" {
		return nil, fmt.Errorf("no output location configured")
	}
	return storage.Open(ctx, c.Output.Ref)
}

// Relative paths in the TOML are taken relative to the TOML file's directory.
// Bucket URLs in [output].ref are left alone.
func (c *Config) convertPathsToAbsolute(configPath string) error {
	configDir := filepath.Dir(configPath)
	paths := map[string]*string{
		"logging.logfile":      &c.Logging.Logfile,
		"sparse.input_dir":     &c.Sparse.InputDir,
		"sparse.atlas":         &c.Sparse.Atlas,
		"sparse.mask":          &c.Sparse.Mask,
		"dbscan.input_dir":     &c.DBSCAN.InputDir,
		"dbscan.counts_dir":    &c.DBSCAN.CountsDir,
		"dbscan.mask":          &c.DBSCAN.Mask,
		"segment.input_dir":    &c.Segment.InputDir,
		"preprocess.input_dir": &c.Preprocess.InputDir,
	}
	if !strings.Contains(c.Output.Ref, "://") {
		paths["output.ref"] = &c.Output.Ref
	}
	for name, p := range paths {
		if *p == "" {
			continue
		}
		abs, err := vox.ConvertToAbsolute(*p, configDir)
		if err != nil {
			return fmt.Errorf("error converting %s to absolute path: %q", name, *p)
		}
		*p = abs
	}
	return nil
}

// OutputOptions converts the [output] section.
func (c *Config) OutputOptions() (pipeline.OutputOptions, error) {
	var opts pipeline.OutputOptions
	var err error
	if opts.Compression, err = vox.ParseCompression(c.Output.Compression); err != nil {
		return opts, err
	}
	if opts.PLYFormat, err = pointcloud.ParsePLYFormat(c.Output.PLYFormat); err != nil {
		return opts, err
	}
	opts.TIFF = c.Output.TIFF
	opts.GLB = c.Output.GLB
	return opts, nil
}

func toShape(dims []int) (volume.Shape, error) {
	var s volume.Shape
	if len(dims) != 4 {
		return s, fmt.Errorf("shape needs 4 extents, got %v", dims)
	}
	copy(s[:], dims)
	return s, s.Validate()
}

func toSpans(crop [][]int) ([]volume.Span, error) {
	spans := make([]volume.Span, len(crop))
	for i, c := range crop {
		if len(c) != 2 {
			return nil, fmt.Errorf("crop bounds for axis %d need [start, end], got %v", i, c)
		}
		spans[i] = volume.Span{Start: c[0], End: c[1]}
	}
	return spans, nil
}

func resolution(explicit []float64, cellType string) (vox.Vector3d, error) {
	if len(explicit) == 0 {
		return PresetFor(cellType).Resolution, nil
	}
	if len(explicit) != 3 {
		return vox.Vector3d{}, fmt.Errorf("resolution needs 3 values, got %v", explicit)
	}
	return vox.Vector3d{explicit[0], explicit[1], explicit[2]}, nil
}

func inputs(dir string, exts ...string) ([]string, error) {
	if dir == "" {
		return nil, fmt.Errorf("no input directory given")
	}
	files, err := vox.FilesWithExt(dir, exts...)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no %s files in %q", strings.Join(exts, " or "), dir)
	}
	return files, nil
}

func loadOptional(path string) (*volume.Volume, error) {
	if path == "" {
		return nil, nil
	}
	timedLog := vox.NewTimeLog()
	v, err := pipeline.LoadVolume(path)
	if err != nil {
		return nil, err
	}
	timedLog.Infof("Loaded %s volume from %s", v.Shape, path)
	return v, nil
}

// SparseJob builds the sparse rendering job from the [sparse] section.
func (c *Config) SparseJob(store *storage.Store) (*pipeline.SparseJob, error) {
	sc := c.Sparse
	files, err := inputs(sc.InputDir, ".ply")
	if err != nil {
		return nil, err
	}
	res, err := resolution(sc.Resolution, sc.CellType)
	if err != nil {
		return nil, err
	}
	scale, err := vox.ScaleFromResolution(res)
	if err != nil {
		return nil, err
	}
	shape, err := toShape(sc.Shape)
	if err != nil {
		return nil, err
	}
	var order [3]int
	if len(sc.AxisOrder) != 0 {
		if len(sc.AxisOrder) != 3 {
			return nil, fmt.Errorf("axis_order needs 3 values, got %v", sc.AxisOrder)
		}
		copy(order[:], sc.AxisOrder)
	}
	crop, err := toSpans(sc.Crop)
	if err != nil {
		return nil, err
	}
	interp, err := volume.ParseInterpolation(sc.Interpolation)
	if err != nil {
		return nil, err
	}
	overflow, err := volume.ParseOverflowPolicy(sc.Overflow)
	if err != nil {
		return nil, err
	}
	out, err := c.OutputOptions()
	if err != nil {
		return nil, err
	}
	job := &pipeline.SparseJob{
		Store:         store,
		Inputs:        files,
		Raster:        volume.RasterConfig{Scale: scale, Shape: shape, AxisOrder: order},
		Step:          sc.Step,
		NumFiles:      sc.NumFiles,
		Divisor:       sc.Divisor,
		Crop:          crop,
		Zoom:          sc.Zoom,
		Interpolation: interp,
		Overflow:      overflow,
		Output:        out,
		BatchOptions:  pipeline.BatchOptions{Workers: sc.Workers, StopOnError: c.Output.StopOnError},
	}
	if job.Mask, err = loadOptional(sc.Mask); err != nil {
		return nil, err
	}
	if job.Atlas, err = loadOptional(sc.Atlas); err != nil {
		return nil, err
	}
	return job, nil
}

// ClusterJob builds the density clustering job from the [dbscan] section.
func (c *Config) ClusterJob(store *storage.Store) (*pipeline.ClusterJob, error) {
	dc := c.DBSCAN
	files, err := inputs(dc.InputDir, ".txt", ".csv", ".ply")
	if err != nil {
		return nil, err
	}
	res, err := resolution(dc.Resolution, dc.CellType)
	if err != nil {
		return nil, err
	}
	cut := dc.Cut
	if cut == 0 {
		cut = PresetFor(dc.CellType).Cut
	}
	shape, err := toShape(dc.Shape)
	if err != nil {
		return nil, err
	}
	out, err := c.OutputOptions()
	if err != nil {
		return nil, err
	}
	cellType := dc.CellType
	if cellType == "" {
		cellType = filepath.Base(dc.InputDir)
	}
	job := &pipeline.ClusterJob{
		Store:        store,
		Inputs:       files,
		CellType:     cellType,
		Resolution:   res,
		Cut:          cut,
		Eps:          dc.Eps,
		Percentiles:  dc.Percentiles,
		MinPoints:    dc.MinPoints,
		CountsDir:    dc.CountsDir,
		Shape:        shape,
		CropX:        dc.CropX,
		Output:       out,
		BatchOptions: pipeline.BatchOptions{Workers: dc.Workers, StopOnError: c.Output.StopOnError},
	}
	if job.Mask, err = loadOptional(dc.Mask); err != nil {
		return nil, err
	}
	return job, nil
}

// SegmentJob builds the centroid segmentation job from the [segment] section.
func (c *Config) SegmentJob(store *storage.Store) (*pipeline.SegmentJob, error) {
	files, err := inputs(c.Segment.InputDir, ".tif", ".tiff")
	if err != nil {
		return nil, err
	}
	return &pipeline.SegmentJob{
		Store:        store,
		Inputs:       files,
		BatchOptions: pipeline.BatchOptions{Workers: c.Segment.Workers, StopOnError: c.Output.StopOnError},
	}, nil
}

// PreprocessJob builds the slice preprocessing job from the [preprocess] section.
func (c *Config) PreprocessJob(store *storage.Store) (*pipeline.PreprocessJob, error) {
	files, err := inputs(c.Preprocess.InputDir, ".tif", ".tiff")
	if err != nil {
		return nil, err
	}
	return &pipeline.PreprocessJob{
		Store:        store,
		Inputs:       files,
		Config:       segment.PreprocessConfig{MedianRadius: c.Preprocess.MedianRadius},
		BatchOptions: pipeline.BatchOptions{Workers: c.Preprocess.Workers, StopOnError: c.Output.StopOnError},
	}, nil
}
