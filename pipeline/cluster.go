package pipeline

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/janelia-flyem/cellvox/cluster"
	"github.com/janelia-flyem/cellvox/pointcloud"
	"github.com/janelia-flyem/cellvox/storage"
	"github.com/janelia-flyem/cellvox/volume"
	"github.com/janelia-flyem/cellvox/vox"
)

// ClusterJob pools the cell points of every input, keeps one hemisphere, and runs
// DBSCAN once per minimum-points threshold.  Thresholds come from percentiles of the
// per-file neighbor count distributions unless given explicitly.
type ClusterJob struct {
	Store    *storage.Store
	Inputs   []string
	CellType string

	// Resolution converts input coordinates to physical units.
	Resolution vox.Vector3d

	// Cut drops points whose input Y coordinate is not below it.  Zero keeps all.
	Cut float64

	Eps         float64
	Percentiles []float64
	MinPoints   []int

	// CountsDir holds precomputed neighbor counts, one <input name>.txt per input
	// with a count per line.  When empty the counts are computed from the inputs.
	CountsDir string

	// Shape of the clustered volume before the axis-0 crop and the axis 0/2 swap.
	Shape volume.Shape
	CropX int
	Mask  *volume.Volume

	Output OutputOptions
	BatchOptions
}

// ReadCounts reads one number per line, ignoring blank lines.
func ReadCounts(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var counts []float64
	scanner := bufio.NewScanner(f)
	for lineNum := 1; scanner.Scan(); lineNum++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		c, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %v", path, lineNum, err)
		}
		counts = append(counts, c)
	}
	return counts, scanner.Err()
}

func (j *ClusterJob) prepare(c *pointcloud.Cloud) (*pointcloud.Cloud, error) {
	if j.Cut > 0 {
		var err error
		if c, err = c.FilterBelow(1, j.Cut); err != nil {
			return nil, err
		}
	}
	return c.Scale(j.Resolution), nil
}

// load reads every input and returns each prepared cloud with its neighbor counts.
func (j *ClusterJob) load(ctx context.Context) ([]*pointcloud.Cloud, [][]float64, error) {
	clouds := make([]*pointcloud.Cloud, len(j.Inputs))
	counts := make([][]float64, len(j.Inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.BatchOptions.workers())
	for i, input := range j.Inputs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			c, err := ReadCloud(input)
			if err != nil {
				return err
			}
			if clouds[i], err = j.prepare(c); err != nil {
				return fmt.Errorf("%s: %v", input, err)
			}
			if len(j.MinPoints) > 0 {
				return nil
			}
			if j.CountsDir != "" {
				counts[i], err = ReadCounts(filepath.Join(j.CountsDir, baseName(input)+".txt"))
				return err
			}
			counts[i] = cluster.IntCounts(cluster.NeighborCounts(clouds[i].Points, j.Eps))
			vox.Debugf("Computed %d neighbor counts for %s\n", len(counts[i]), input)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return clouds, counts, nil
}

// thresholds returns the distinct minimum-points values to cluster with, in order.
func (j *ClusterJob) thresholds(counts [][]float64) ([]int, error) {
	var values []int
	if len(j.MinPoints) > 0 {
		values = j.MinPoints
	} else {
		mp, err := cluster.MinPoints(counts, j.Percentiles, len(j.Inputs))
		if err != nil {
			return nil, err
		}
		for _, v := range mp {
			values = append(values, int(v))
		}
	}
	seen := make(map[int]bool, len(values))
	var out []int
	for _, v := range values {
		if v < 1 {
			v = 1
		}
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out, nil
}

// Run clusters the pooled inputs at every threshold and stores the run manifest.
func (j *ClusterJob) Run(ctx context.Context) (*Manifest, error) {
	if j.Store == nil {
		return nil, errors.New("cluster job has no output store")
	}
	if len(j.Inputs) == 0 {
		return nil, errors.New("cluster job has no inputs")
	}
	if err := (cluster.Params{Eps: j.Eps, MinPts: 1}).Validate(); err != nil {
		return nil, err
	}
	scale, err := vox.ScaleFromResolution(j.Resolution)
	if err != nil {
		return nil, err
	}
	raster := volume.RasterConfig{Scale: scale, Shape: j.Shape}
	if err := raster.Validate(); err != nil {
		return nil, err
	}

	m := newManifest("dbscan", j.Inputs)
	m.setParam("cell_type", j.CellType)
	m.setParam("eps", j.Eps)
	m.setParam("resolution", j.Resolution)
	m.setParam("cut", j.Cut)

	timedLog := vox.NewTimeLog()
	clouds, counts, err := j.load(ctx)
	if err != nil {
		return nil, err
	}
	pooled := pointcloud.Concat(clouds...)
	thresholds, err := j.thresholds(counts)
	if err != nil {
		return nil, err
	}
	m.setParam("min_points", thresholds)
	timedLog.Infof("Loaded %d points from %d files, clustering with min points %v", pooled.Len(), len(j.Inputs), thresholds)

	names := make([]string, len(thresholds))
	byName := make(map[string]int, len(thresholds))
	for i, mp := range thresholds {
		names[i] = fmt.Sprintf("%s_min_points%d_eps%g_pointCloud_dbscan", j.CellType, mp, j.Eps)
		byName[names[i]] = mp
	}
	err = runBatch(ctx, m, names, j.BatchOptions, func(ctx context.Context, name string) ([]string, error) {
		return j.cluster(ctx, name, pooled, byName[name], raster)
	})
	if ferr := m.finish(context.WithoutCancel(ctx), j.Store); err == nil {
		err = ferr
	}
	return m, err
}

func (j *ClusterJob) cluster(ctx context.Context, name string, pooled *pointcloud.Cloud, minPts int, raster volume.RasterConfig) ([]string, error) {
	res, err := cluster.DBSCAN(pooled.Points, cluster.Params{Eps: j.Eps, MinPts: minPts})
	if err != nil {
		return nil, err
	}
	vox.Infof("%s: %d clusters, %d noise points of %d\n", name, res.NumClusters, res.NoiseCount(), pooled.Len())
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	colored := &pointcloud.Cloud{Points: pooled.Points, Colors: cluster.Colorize(res.Labels, res.MaxLabel())}
	keys, err := putCloud(ctx, j.Store, name, colored, j.Output)
	if err != nil {
		return keys, err
	}

	vol, err := j.clusterVolume(colored, raster)
	if err != nil {
		return keys, err
	}
	written, err := putVolume(ctx, j.Store, name, vol, j.Output)
	return append(keys, written...), err
}

// clusterVolume rasterizes the colored clusters back in voxel units, crops axis 0,
// swaps axes 0 and 2 into atlas order, and applies the mask.
func (j *ClusterJob) clusterVolume(colored *pointcloud.Cloud, raster volume.RasterConfig) (*volume.Volume, error) {
	vol, err := volume.Rasterize(colored.Points, colored.Colors, raster)
	if err != nil {
		return nil, err
	}
	if j.CropX > 0 {
		if vol, err = volume.Crop(vol, []volume.Span{volume.Upto(j.CropX)}); err != nil {
			return nil, err
		}
	}
	if vol, err = volume.SwapAxes(vol, 0, 2); err != nil {
		return nil, err
	}
	if j.Mask != nil {
		return volume.ApplyMask(vol, j.Mask)
	}
	return vol, nil
}
