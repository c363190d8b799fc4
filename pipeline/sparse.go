package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/janelia-flyem/cellvox/storage"
	"github.com/janelia-flyem/cellvox/volume"
	"github.com/janelia-flyem/cellvox/vox"
)

// SparseJob renders a sparse subset of each input point cloud into a volume, masks
// it, and optionally overlays it on an atlas that is then cropped and zoomed.
type SparseJob struct {
	Store  *storage.Store
	Inputs []string

	// Raster places points in the volume.  Its Step is filled in by Run.
	Raster volume.RasterConfig

	// Step keeps every Step-th point.  When zero it is ceil(NumFiles / Divisor).
	Step     int
	NumFiles int
	Divisor  int

	// Mask and Atlas are optional single or three channel reference volumes.
	Mask  *volume.Volume
	Atlas *volume.Volume

	// Crop and Zoom apply to the atlas composite.
	Crop          []volume.Span
	Zoom          []float64
	Interpolation volume.Interpolation
	Overflow      volume.OverflowPolicy

	Output OutputOptions
	BatchOptions
}

// SparseStep returns ceil(numFiles / divisor), and at least 1.
func SparseStep(numFiles, divisor int) int {
	if divisor < 1 {
		divisor = 1
	}
	step := (numFiles + divisor - 1) / divisor
	if step < 1 {
		return 1
	}
	return step
}

func (j *SparseJob) step() int {
	if j.Step > 0 {
		return j.Step
	}
	n := j.NumFiles
	if n == 0 {
		n = len(j.Inputs)
	}
	return SparseStep(n, j.Divisor)
}

// Run processes every input and stores the run manifest.
func (j *SparseJob) Run(ctx context.Context) (*Manifest, error) {
	if j.Store == nil {
		return nil, errors.New("sparse job has no output store")
	}
	cfg := j.Raster
	cfg.Step = j.step()
	cfg.SkipZeroColor = true
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if j.Atlas != nil {
		cropped, err := volume.CropShape(cfg.Shape, j.Crop)
		if err != nil {
			return nil, fmt.Errorf("crop: %w", err)
		}
		if len(j.Zoom) > 0 {
			if _, err := volume.ZoomShape(cropped, j.Zoom); err != nil {
				return nil, fmt.Errorf("zoom of cropped shape %s: %w", cropped, err)
			}
		}
	}

	m := newManifest("sparse", j.Inputs)
	m.setParam("step", cfg.Step)
	m.setParam("shape", cfg.Shape)
	m.setParam("scale", vox.Vector3d(cfg.Scale))
	m.setParam("axis_order", cfg.AxisOrder)
	m.setParam("mask", j.Mask != nil)
	m.setParam("atlas", j.Atlas != nil)
	if j.Atlas != nil {
		m.setParam("crop", j.Crop)
		m.setParam("zoom", j.Zoom)
		m.setParam("interpolation", j.Interpolation)
		m.setParam("overflow", j.Overflow)
	}
	vox.Infof("Sparse run %s: %d inputs, keeping every %d points\n", m.RunID, len(j.Inputs), cfg.Step)

	err := runBatch(ctx, m, j.Inputs, j.BatchOptions, func(ctx context.Context, input string) ([]string, error) {
		return j.process(ctx, input, cfg)
	})
	if ferr := m.finish(context.WithoutCancel(ctx), j.Store); err == nil {
		err = ferr
	}
	return m, err
}

func (j *SparseJob) process(ctx context.Context, input string, cfg volume.RasterConfig) ([]string, error) {
	cloud, err := ReadCloud(input)
	if err != nil {
		return nil, err
	}
	if !cloud.HasColors() {
		return nil, fmt.Errorf("%q has no vertex colors", input)
	}
	name := baseName(input)

	sparse, err := cloud.Sparse(cfg.Step)
	if err != nil {
		return nil, err
	}
	keys, err := putCloud(ctx, j.Store, name+"_sparse_points", sparse, j.Output)
	if err != nil {
		return keys, err
	}

	vol, err := volume.Rasterize(cloud.Points, cloud.Colors, cfg)
	if err != nil {
		return keys, err
	}
	if j.Mask != nil {
		if vol, err = volume.ApplyMask(vol, j.Mask); err != nil {
			return keys, err
		}
	}
	written, err := putVolume(ctx, j.Store, name+"_sparse", vol, j.Output)
	keys = append(keys, written...)
	if err != nil || j.Atlas == nil {
		return keys, err
	}

	combined, err := volume.Composite(vol, j.Atlas, j.Overflow)
	if err != nil {
		return keys, err
	}
	if len(j.Zoom) > 0 {
		combined, err = volume.CropAndResample(combined, j.Crop, j.Zoom, j.Interpolation)
	} else {
		combined, err = volume.Crop(combined, j.Crop)
	}
	if err != nil {
		return keys, err
	}
	written, err = putVolume(ctx, j.Store, name+"_sparse_atlas", combined, j.Output)
	return append(keys, written...), err
}
